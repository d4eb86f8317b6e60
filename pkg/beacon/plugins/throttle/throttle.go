// Package throttle provides a pre-stage plugin that rate-limits event
// delivery with a token bucket.
//
// In the default "defer" mode an over-limit event fails transiently,
// so the engine re-enqueues it and delivers once the bucket refills.
// In "drop" mode over-limit events are discarded without retry.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// ErrThrottled is returned in defer mode when the bucket is empty.
// The engine treats it as a transient failure and retries.
var ErrThrottled = errors.New("throttle: rate limit exceeded")

// Plugin rate-limits events at the pre stage.
type Plugin struct {
	limiter *rate.Limiter
	drop    bool
	loaded  atomic.Bool
}

// New creates an unloaded throttle plugin. Configuration happens in
// Load.
func New() *Plugin {
	return &Plugin{}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return "throttle"
}

// Stage implements plugin.Plugin.
func (p *Plugin) Stage() plugin.Stage {
	return plugin.StagePre
}

// Load implements plugin.Plugin. Config keys:
//
//	events_per_second  float   bucket refill rate (default 100)
//	burst              int     bucket size (default ceil of the rate, min 1)
//	mode               string  "defer" (default) or "drop"
func (p *Plugin) Load(ctx context.Context, cfg config.Config) error {
	eps := cfg.Float("events_per_second", 100)
	if eps <= 0 {
		return fmt.Errorf("throttle: events_per_second must be > 0, got %v", eps)
	}

	burst := cfg.Int("burst", defaultBurst(eps))
	if burst < 1 {
		return fmt.Errorf("throttle: burst must be >= 1, got %d", burst)
	}

	switch mode := cfg.String("mode", "defer"); mode {
	case "defer":
		p.drop = false
	case "drop":
		p.drop = true
	default:
		return fmt.Errorf("throttle: unknown mode %q", mode)
	}

	p.limiter = rate.NewLimiter(rate.Limit(eps), burst)
	p.loaded.Store(true)
	return nil
}

// Ready implements plugin.Plugin.
func (p *Plugin) Ready() bool {
	return p.loaded.Load()
}

// Process implements plugin.Plugin.
func (p *Plugin) Process(ctx context.Context, evt *event.Event) error {
	if p.limiter.Allow() {
		return nil
	}
	if p.drop {
		return fmt.Errorf("%w: rate limit exceeded", plugin.ErrDrop)
	}
	return ErrThrottled
}

var _ plugin.Plugin = (*Plugin)(nil)

// defaultBurst sizes the bucket to one second of traffic.
func defaultBurst(eps float64) int {
	b := int(eps)
	if float64(b) < eps {
		b++
	}
	if b < 1 {
		b = 1
	}
	return b
}
