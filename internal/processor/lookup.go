package processor

import (
	"eventflow/internal/constants"
	"eventflow/internal/dedup"
	"eventflow/internal/engine"
	"eventflow/internal/enrich"
	apperrors "eventflow/pkg/errors"
)

// Dedup ends the traversal of messages already seen by the shared dedup
// service. With MarkField set, duplicates are flagged instead and continue.
type Dedup struct {
	Fields    []string `mapstructure:"fields"`
	MarkField string   `mapstructure:"mark_field"`
}

func (p *Dedup) Process(mc *engine.MessageContext) {
	svc, ok := engine.RequireService[*dedup.Service](mc, constants.ServiceDedup)
	if !ok {
		return
	}

	unique, err := svc.IsUnique(mc.Context(), mc.Message(), p.Fields...)
	if err != nil {
		mc.Warn("dedup check failed, message dropped", "error", err)
		mc.Stop()
		return
	}
	if unique {
		return
	}

	mc.Metrics().Counter("processor", "dedup", "duplicates").Inc()
	if p.MarkField != "" {
		mc.Message().PutValue(p.MarkField, true)
		return
	}
	mc.Stop()
}

// Enrich looks up Key, an expression, in a named provider and stores the
// result at Target. Lookups that find nothing store Default when one is
// configured, or end the traversal when DropMissing is set.
type Enrich struct {
	Provider    string      `mapstructure:"provider"`
	Key         string      `mapstructure:"key"`
	Target      string      `mapstructure:"target"`
	Default     interface{} `mapstructure:"default"`
	DropMissing bool        `mapstructure:"drop_missing"`
}

func (p *Enrich) Process(mc *engine.MessageContext) {
	provider, ok := engine.RequireService[enrich.Provider](mc, constants.ServicePrefixProvider+p.Provider)
	if !ok {
		return
	}

	msg := mc.Message()
	key := msg.EvalExpression(p.Key)
	if key == "" {
		p.missing(mc, "enrichment key is empty")
		return
	}

	data, err := provider.Fetch(mc.Context(), key)
	switch {
	case err == nil:
		msg.PutRawValue(p.Target, data)
	case apperrors.IsNotFound(err):
		p.missing(mc, "enrichment data not found", "key", key)
	default:
		mc.Warn("enrichment lookup failed", "provider", p.Provider, "key", key, "error", err)
		if p.Default != nil {
			msg.PutRawValue(p.Target, p.Default)
		}
	}
}

func (p *Enrich) missing(mc *engine.MessageContext, reason string, keysAndValues ...interface{}) {
	mc.Metrics().Counter("processor", "enrich", p.Provider, "missing").Inc()
	switch {
	case p.Default != nil:
		mc.Message().PutRawValue(p.Target, p.Default)
	case p.DropMissing:
		mc.Warn(reason+", message dropped", append(keysAndValues, "provider", p.Provider)...)
		mc.Stop()
	}
}
