// Package webhook provides a destination plugin that delivers events
// as JSON over HTTP.
//
// The request URL and header values may reference event properties
// with ${property} placeholders, so a single plugin instance can fan
// events out to per-tenant endpoints:
//
//	url: https://collect.example.com/${tenant}/events
//
// Responses outside the 2xx range fail the delivery. Client errors
// other than 408 and 429 are marked permanent, since resending the
// same payload cannot fix them; everything else is retried under the
// engine's retry policy.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/beacon/pkg/beacon"
	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// DefaultTimeout bounds each delivery request.
const DefaultTimeout = 10 * time.Second

// Plugin posts sealed events to an HTTP endpoint.
type Plugin struct {
	url     string
	method  string
	headers map[string]string
	client  *http.Client
	loaded  atomic.Bool
}

// New creates an unloaded webhook plugin. Configuration happens in
// Load.
func New() *Plugin {
	return &Plugin{}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return "webhook"
}

// Stage implements plugin.Plugin.
func (p *Plugin) Stage() plugin.Stage {
	return plugin.StageDestination
}

// Load implements plugin.Plugin. Config keys:
//
//	url      string    endpoint (required); ${property} placeholders
//	                   expand against the event's payload, plus
//	                   ${event_id} and ${event_name}
//	method   string    HTTP method (default "POST")
//	headers  map       header name -> value; values expand like url
//	timeout  duration  per-request bound (default 10s)
func (p *Plugin) Load(ctx context.Context, cfg config.Config) error {
	url := cfg.String("url", "")
	if url == "" {
		return fmt.Errorf("webhook: url is required")
	}
	p.url = url
	p.method = cfg.String("method", http.MethodPost)

	headers := cfg.Map("headers", nil)
	p.headers = make(map[string]string, len(headers))
	for k, v := range headers {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("webhook: header %q must be a string, got %T", k, v)
		}
		p.headers[k] = s
	}

	p.client = &http.Client{Timeout: cfg.Duration("timeout", DefaultTimeout)}
	p.loaded.Store(true)
	return nil
}

// Ready implements plugin.Plugin.
func (p *Plugin) Ready() bool {
	return p.loaded.Load()
}

// Process implements plugin.Plugin.
func (p *Plugin) Process(ctx context.Context, evt *event.Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return beacon.Permanent(fmt.Errorf("webhook: encode event: %w", err))
	}

	vars := evt.Properties()
	vars["event_id"] = evt.ID()
	vars["event_name"] = evt.Name()

	req, err := http.NewRequestWithContext(ctx, p.method, expand(p.url, vars), bytes.NewReader(body))
	if err != nil {
		return beacon.Permanent(fmt.Errorf("webhook: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.headers {
		req.Header.Set(k, expand(v, vars))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) // keep the connection reusable

	return classify(resp.StatusCode)
}

// classify maps a response status to a delivery outcome.
func classify(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return fmt.Errorf("webhook: endpoint returned %d", status)
	case status >= 400 && status < 500:
		return beacon.Permanent(fmt.Errorf("webhook: endpoint returned %d", status))
	default:
		return fmt.Errorf("webhook: endpoint returned %d", status)
	}
}

var _ plugin.Plugin = (*Plugin)(nil)
