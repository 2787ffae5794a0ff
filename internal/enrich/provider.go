// Package enrich looks up reference data in external stores by a key taken
// from the message.
package enrich

import (
	"context"
	"strings"

	apperrors "eventflow/pkg/errors"
)

// Provider fetches the document associated with value. A lookup that finds
// nothing returns an error for which apperrors.IsNotFound is true.
type Provider interface {
	Fetch(ctx context.Context, value string) (map[string]interface{}, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, value string) (map[string]interface{}, error)

func (f ProviderFunc) Fetch(ctx context.Context, value string) (map[string]interface{}, error) {
	return f(ctx, value)
}

func notFound(what string) error {
	return apperrors.ErrNotFound.WithMessage(what)
}

// expand replaces {value} in pattern. {field_value} is accepted as an alias.
func expand(pattern, value string) string {
	pattern = strings.ReplaceAll(pattern, "{field_value}", value)
	return strings.ReplaceAll(pattern, "{value}", value)
}
