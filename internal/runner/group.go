package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Group runs several streams side by side. A failing stream ends on its
// own; the others keep running until they finish or ctx is done. Run
// returns the first stream failure.
type Group struct {
	runners []*Runner
}

func NewGroup(runners ...*Runner) *Group {
	return &Group{runners: runners}
}

func (g *Group) Add(r *Runner) {
	g.runners = append(g.runners, r)
}

func (g *Group) Runners() []*Runner {
	return append([]*Runner(nil), g.runners...)
}

// Get returns the runner of the named stream.
func (g *Group) Get(stream string) (*Runner, bool) {
	for _, r := range g.runners {
		if r.stream.Name() == stream {
			return r, true
		}
	}
	return nil, false
}

func (g *Group) Statuses() []Status {
	out := make([]Status, 0, len(g.runners))
	for _, r := range g.runners {
		out = append(out, r.Status())
	}
	return out
}

func (g *Group) Run(ctx context.Context) error {
	var eg errgroup.Group
	for _, r := range g.runners {
		eg.Go(func() error {
			return r.Run(ctx)
		})
	}
	return eg.Wait()
}
