package registry

import (
	"fmt"

	"eventflow/internal/config"
	"eventflow/internal/engine"
	"eventflow/internal/filter"
)

func registerFilters(r *Registry) {
	r.RegisterFilter("equals", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		var s struct {
			Left  string `mapstructure:"left"`
			Right string `mapstructure:"right"`
		}
		if err := decode(cfg.Settings, &s); err != nil {
			return nil, err
		}
		return filter.NewEquals(s.Left, s.Right), nil
	})
	r.RegisterFilter("is_true", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		s, err := valueSettings(cfg)
		if err != nil {
			return nil, err
		}
		return filter.NewIsTrue(s), nil
	})
	r.RegisterFilter("is_false", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		s, err := valueSettings(cfg)
		if err != nil {
			return nil, err
		}
		return filter.NewIsFalse(s), nil
	})
	r.RegisterFilter("is_empty", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		field, err := fieldSettings(cfg)
		if err != nil {
			return nil, err
		}
		return &filter.IsEmpty{Field: field}, nil
	})
	r.RegisterFilter("has", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		field, err := fieldSettings(cfg)
		if err != nil {
			return nil, err
		}
		return &filter.Has{Field: field}, nil
	})
	r.RegisterFilter("matches", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		var s struct {
			Value   string `mapstructure:"value"`
			Pattern string `mapstructure:"pattern"`
		}
		if err := decode(cfg.Settings, &s); err != nil {
			return nil, err
		}
		return filter.NewMatches(s.Value, s.Pattern)
	})
	r.RegisterFilter("expression", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		var s struct {
			Expression string `mapstructure:"expression"`
			Fallback   string `mapstructure:"fallback"`
		}
		if err := decode(cfg.Settings, &s); err != nil {
			return nil, err
		}
		return filter.NewExpression(b.deps.Evaluator, s.Expression, s.Fallback)
	})
	r.RegisterFilter("or", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		children, err := b.children(cfg)
		if err != nil {
			return nil, err
		}
		return &filter.Or{Filters: children}, nil
	})
	r.RegisterFilter("and", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		children, err := b.children(cfg)
		if err != nil {
			return nil, err
		}
		return &filter.And{Filters: children}, nil
	})
	r.RegisterFilter("not", func(b *Builder, cfg config.FilterConfig) (engine.Filter, error) {
		if len(cfg.Filters) != 1 {
			return nil, fmt.Errorf("not takes exactly one filter, got %d", len(cfg.Filters))
		}
		child, err := b.Filter(cfg.Filters[0])
		if err != nil {
			return nil, err
		}
		return &filter.Not{Filter: child}, nil
	})
}

func (b *Builder) children(cfg config.FilterConfig) ([]engine.Filter, error) {
	out := make([]engine.Filter, 0, len(cfg.Filters))
	for _, fc := range cfg.Filters {
		f, err := b.Filter(fc)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func valueSettings(cfg config.FilterConfig) (string, error) {
	var s struct {
		Value string `mapstructure:"value"`
	}
	err := decode(cfg.Settings, &s)
	return s.Value, err
}

func fieldSettings(cfg config.FilterConfig) (string, error) {
	var s struct {
		Field string `mapstructure:"field"`
	}
	if err := decode(cfg.Settings, &s); err != nil {
		return "", err
	}
	if s.Field == "" {
		return "", fmt.Errorf("field is required")
	}
	return s.Field, nil
}
