// Package config loads Komrad's runtime configuration from a TOML
// file, using struct-tagged config types decoded via
// github.com/BurntSushi/toml, the ecosystem's standard strict TOML
// decoder.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Runtime holds the knobs an embedder may want to tune without a
// rebuild: channel capacity and the default log level. The ask-reply
// channel capacity is fixed (kchannel.ReplyCapacity), not configured.
type Runtime struct {
	// ChannelCapacity is the default bound for an agent's data and
	// control queues.
	ChannelCapacity int `toml:"channel_capacity"`

	// LogLevel is parsed by logrus.ParseLevel in internal/obslog.
	LogLevel string `toml:"log_level"`
}

// Default returns the out-of-the-box runtime defaults.
func Default() Runtime {
	return Runtime{
		ChannelCapacity: 32,
		LogLevel:        "info",
	}
}

// Load reads and strictly decodes a TOML config file, starting from
// Default() so that a file only needs to override what it changes.
func Load(path string) (Runtime, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Runtime{}, errors.Wrapf(err, "loading config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Runtime{}, errors.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}
