package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"eventflow/internal/constants"
)

type APIConfig struct {
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// APIProvider calls an HTTP endpoint whose URL contains a {value}
// placeholder and decodes the JSON object it returns. A 404 is reported as
// not found.
type APIProvider struct {
	client  *http.Client
	url     string
	method  string
	headers map[string]string
}

func NewAPIProvider(cfg APIConfig) (*APIProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("api provider needs a url")
	}
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &APIProvider{
		client:  &http.Client{Timeout: timeout},
		url:     cfg.URL,
		method:  method,
		headers: cfg.Headers,
	}, nil
}

func (p *APIProvider) Fetch(ctx context.Context, value string) (map[string]interface{}, error) {
	target := expand(p.url, url.PathEscape(value))

	req, err := http.NewRequestWithContext(ctx, p.method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, notFound("api returned 404 for " + value)
	}
	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return nil, fmt.Errorf("api returned status: %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}
