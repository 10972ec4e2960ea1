// Package config loads the fragmentation layer's tunables (MTU,
// encode_length, max_reassembly_size) via viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the fragmentation layer's external tunables.
type Config struct {
	// MTU is the per-wire-fragment size cap. 0 or negative disables
	// fragmentation.
	MTU int `mapstructure:"mtu"`

	// EncodeLength toggles the 3-byte frame-length prefix used when the
	// underlying byte-channel is not self-delimiting.
	EncodeLength bool `mapstructure:"encode_length"`

	// MaxReassemblySize bounds accumulated per-stream reassembly size.
	// 0 disables the bound.
	MaxReassemblySize int `mapstructure:"max_reassembly_size"`
}

// Defaults mirror common RSocket transport defaults.
func Defaults() Config {
	return Config{
		MTU:               0, // fragmentation disabled until explicitly configured
		EncodeLength:      false,
		MaxReassemblySize: 16 << 20, // 16 MiB
	}
}

// Load reads Config from v, falling back to Defaults for unset keys.
func Load(v *viper.Viper) (Config, error) {
	cfg := Defaults()
	v.SetDefault("mtu", cfg.MTU)
	v.SetDefault("encode_length", cfg.EncodeLength)
	v.SetDefault("max_reassembly_size", cfg.MaxReassemblySize)

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.MTU < 0 {
		cfg.MTU = 0
	}
	return cfg, nil
}
