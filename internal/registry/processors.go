package registry

import (
	"fmt"

	"eventflow/internal/engine"
	"eventflow/internal/processor"
)

// settingsInto returns a factory decoding settings straight into a fresh
// processor value, checked by validate when given.
func settingsInto[T any, P interface {
	*T
	engine.Processor
}](validate func(P) error) ProcessorFactory {
	return func(b *Builder, settings map[string]interface{}) (engine.Processor, error) {
		p := P(new(T))
		if err := decode(settings, p); err != nil {
			return nil, err
		}
		if validate != nil {
			if err := validate(p); err != nil {
				return nil, err
			}
		}
		return p, nil
	}
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

func registerProcessors(r *Registry) {
	r.RegisterProcessor("set", settingsInto[processor.Set](func(p *processor.Set) error {
		return required("field", p.Field)
	}))
	r.RegisterProcessor("set_raw", settingsInto[processor.SetRaw](func(p *processor.SetRaw) error {
		return required("field", p.Field)
	}))
	r.RegisterProcessor("clear", settingsInto[processor.Clear](nil))
	r.RegisterProcessor("map", settingsInto[processor.Map](func(p *processor.Map) error {
		for i, m := range p.Mappings {
			if m.From == "" || m.To == "" {
				return fmt.Errorf("mapping %d needs from and to", i)
			}
		}
		return nil
	}))
	r.RegisterProcessor("drop", func(*Builder, map[string]interface{}) (engine.Processor, error) {
		return processor.Drop{}, nil
	})
	r.RegisterProcessor("route", func(b *Builder, settings map[string]interface{}) (engine.Processor, error) {
		p := &processor.Route{MaxDepth: b.deps.Engine.MaxRouteDepth}
		if err := decode(settings, p); err != nil {
			return nil, err
		}
		if err := required("pipeline", p.Pipeline); err != nil {
			return nil, err
		}
		return p, nil
	})
	r.RegisterProcessor("requeue", settingsInto[processor.Requeue](func(p *processor.Requeue) error {
		return required("pipeline", p.Pipeline)
	}))
	r.RegisterProcessor("age", settingsInto[processor.Age](func(p *processor.Age) error {
		if p.Delay <= 0 {
			return fmt.Errorf("delay must be positive")
		}
		return required("queue", p.Queue)
	}))
	r.RegisterProcessor("emit", settingsInto[processor.Emit](func(p *processor.Emit) error {
		return required("sink", p.Sink)
	}))
	r.RegisterProcessor("log", settingsInto[processor.Log](nil))
	r.RegisterProcessor("warn", settingsInto[processor.Warn](nil))
	r.RegisterProcessor("dedup", settingsInto[processor.Dedup](nil))
	r.RegisterProcessor("enrich", settingsInto[processor.Enrich](func(p *processor.Enrich) error {
		if err := required("provider", p.Provider); err != nil {
			return err
		}
		if err := required("key", p.Key); err != nil {
			return err
		}
		return required("target", p.Target)
	}))
	r.RegisterProcessor("eval", func(b *Builder, settings map[string]interface{}) (engine.Processor, error) {
		var s struct {
			Field      string `mapstructure:"field"`
			Expression string `mapstructure:"expression"`
		}
		if err := decode(settings, &s); err != nil {
			return nil, err
		}
		if err := required("field", s.Field); err != nil {
			return nil, err
		}
		return processor.NewEval(b.deps.Evaluator, s.Field, s.Expression)
	})
	r.RegisterProcessor("throttle", func(b *Builder, settings map[string]interface{}) (engine.Processor, error) {
		var s struct {
			Rate  float64 `mapstructure:"rate"`
			Burst int     `mapstructure:"burst"`
			Mode  string  `mapstructure:"mode"`
		}
		if err := decode(settings, &s); err != nil {
			return nil, err
		}
		return processor.NewThrottle(s.Rate, s.Burst, s.Mode)
	})
}
