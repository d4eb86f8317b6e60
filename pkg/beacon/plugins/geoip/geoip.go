// Package geoip provides an enrich-stage plugin that resolves an IP
// property to country and city via a MaxMind MMDB database.
package geoip

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/oschwald/maxminddb-golang"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// record holds the fields decoded from the MMDB file, matching the
// GeoLite2/GeoIP2 City layout.
type record struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

// Plugin looks up IP geolocation at the enrich stage. The reader is
// swapped atomically, so Reload is safe while events flow.
type Plugin struct {
	property string
	reader   atomic.Pointer[maxminddb.Reader]
}

// New creates an unloaded geoip plugin.
func New() *Plugin {
	return &Plugin{}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return "geoip"
}

// Stage implements plugin.Plugin.
func (p *Plugin) Stage() plugin.Stage {
	return plugin.StageEnrich
}

// Load implements plugin.Plugin. Config keys:
//
//	database  string  path to the MMDB file (required)
//	property  string  event property holding the IP (default "ip")
func (p *Plugin) Load(ctx context.Context, cfg config.Config) error {
	path := cfg.String("database", "")
	if path == "" {
		return fmt.Errorf("geoip: database is required")
	}
	p.property = cfg.String("property", "ip")
	return p.Reload(path)
}

// Reload opens an MMDB file and swaps it in. The previous reader is
// closed after the swap.
func (p *Plugin) Reload(path string) error {
	r, err := maxminddb.Open(path)
	if err != nil {
		return fmt.Errorf("geoip: open mmdb %q: %w", path, err)
	}
	if old := p.reader.Swap(r); old != nil {
		_ = old.Close()
	}
	return nil
}

// Ready implements plugin.Plugin.
func (p *Plugin) Ready() bool {
	return p.reader.Load() != nil
}

// Process implements plugin.Plugin. Events without the configured
// property, with an unparseable IP, or with no database match pass
// through unchanged.
func (p *Plugin) Process(ctx context.Context, evt *event.Event) error {
	r := p.reader.Load()
	if r == nil {
		return nil
	}

	raw, ok := evt.Get(p.property)
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}

	var rec record
	if err := r.Lookup(ip, &rec); err != nil {
		return fmt.Errorf("geoip: lookup %s: %w", ip, err)
	}

	if rec.Country.ISOCode != "" {
		if err := evt.Set("country", rec.Country.ISOCode); err != nil {
			return err
		}
	}
	if name := rec.City.Names["en"]; name != "" {
		if err := evt.Set("city", name); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the MMDB reader. The plugin reports not ready after
// Close.
func (p *Plugin) Close() error {
	if r := p.reader.Swap(nil); r != nil {
		return r.Close()
	}
	return nil
}

var _ plugin.Plugin = (*Plugin)(nil)
