package engine

import "sort"

// Pipeline is an ordered list of rules. Rules are appended while the engine
// is being configured; after that the pipeline is read-only and may be
// traversed by any number of goroutines.
type Pipeline struct {
	name  string
	rules []Rule
}

func NewPipeline(name string, rules ...Rule) *Pipeline {
	p := &Pipeline{name: name}
	return p.Append(rules...)
}

func (p *Pipeline) Name() string {
	return p.name
}

func (p *Pipeline) Append(rules ...Rule) *Pipeline {
	p.rules = append(p.rules, rules...)
	return p
}

func (p *Pipeline) Rules() []Rule {
	rules := make([]Rule, len(p.rules))
	copy(rules, p.rules)
	return rules
}

// Process runs mc through every rule in order. Once a processor clears the
// continuation flag nothing else in this pipeline runs for mc.
func (p *Pipeline) Process(mc *MessageContext) {
	for _, rule := range p.rules {
		for _, proc := range rule.branch(mc) {
			proc.Process(mc)
			if !mc.ShouldContinue() {
				break
			}
		}
		if !mc.ShouldContinue() {
			return
		}
	}
}

// PipelineSet maps pipeline names to pipelines.
type PipelineSet map[string]*Pipeline

func NewPipelineSet(pipelines ...*Pipeline) PipelineSet {
	set := make(PipelineSet, len(pipelines))
	for _, p := range pipelines {
		set[p.Name()] = p
	}
	return set
}

func (s PipelineSet) Get(name string) (*Pipeline, bool) {
	p, ok := s[name]
	return p, ok
}

func (s PipelineSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
