/*
Package config provides type-safe configuration extraction from map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
It is the options vehicle for plugin loading: the engine passes a Config to
every Plugin.Load call, and plugins pull what they need without verbose type
assertions and nil checks.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "flush_interval": "3s",
	    "topic":          "events",
	    "qos":            1,
	})

	interval := cfg.Duration("flush_interval", 3*time.Second) // 3s
	topic := cfg.String("topic", "analytics")                 // "events"
	qos := cfg.Int("qos", 0)                                  // 1
	missing := cfg.String("missing", "default")               // "default"

# Type Coercion

Duration handles multiple input types:
  - string: parsed with time.ParseDuration ("3s", "1h30m")
  - int/float64: interpreted as seconds
  - time.Duration: used directly

Numeric types handle reasonable conversions:
  - int from float64 (truncated)
  - float64 from int

All methods return the default value if:
  - The key is missing
  - The value cannot be converted to the requested type
  - The conversion would lose precision (e.g., float to int with fraction)

# File Loading

Load configuration from YAML or JSON files:

	cfg, err := config.FromFile("beacon.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	// Or load from bytes
	cfg, err = config.FromYAML(yamlBytes)
	cfg, err = config.FromJSON(jsonBytes)

Engine-level settings in a loaded file map onto options through
beacon.FromConfig.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation. However, if the original map is modified
externally, behavior is undefined.
*/
package config
