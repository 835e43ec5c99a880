// Package config loads bridge run configuration from YAML files with
// viper, including the operation table handed to the call bridge.
package config

import (
	"github.com/spf13/viper"
)

type BridgeConfig struct {
	LogLevel   string            `mapstructure:"log_level"`
	Module     string            `mapstructure:"module"`
	Engine     EngineConfig      `mapstructure:"engine"`
	Region     RegionConfig      `mapstructure:"region"`
	Codec      CodecConfig       `mapstructure:"codec"`
	Operations []OperationConfig `mapstructure:"operations"`
}

// EngineConfig holds runtime configuration.
type EngineConfig struct {
	// Memory limit per instance (in pages, 64KB each). 0 keeps the
	// runtime default.
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages"`
	// Host provides the linear memory instead of the guest exporting it.
	HostMemory bool `mapstructure:"host_memory"`
	// Module name the host memory is importable from.
	HostMemoryModule string `mapstructure:"host_memory_module"`
	// Initial and maximum page counts for host-provided memory.
	HostMemoryMin uint32 `mapstructure:"host_memory_min"`
	HostMemoryMax uint32 `mapstructure:"host_memory_max"`
}

// RegionConfig holds the memory window used for call traffic.
type RegionConfig struct {
	Offset   uint32 `mapstructure:"offset"`
	Capacity uint32 `mapstructure:"capacity"`
	// UseAllocator requests per-call regions from the guest allocator
	// instead of the fixed window.
	UseAllocator bool `mapstructure:"use_allocator"`
}

// CodecConfig bounds encoded values.
type CodecConfig struct {
	// Maximum encoded value size in bytes. 0 disables the limit.
	MaxEncodedSize uint32 `mapstructure:"max_encoded_size"`
}

// OperationConfig declares one guest operation.
type OperationConfig struct {
	Name string `mapstructure:"name"`
	// Kind is numeric, text or structured.
	Kind string `mapstructure:"kind"`
	// Params and Results name the flat scalar types of a numeric
	// operation: u32, s32, u64, s64, f32, f64, bool.
	Params  []string `mapstructure:"params"`
	Results []string `mapstructure:"results"`
	// Codes maps negative guest return values to error kinds, overriding
	// the defaults for the operation kind. Keys are decimal strings since
	// YAML mapping keys arrive as strings.
	Codes map[string]string `mapstructure:"codes"`
}

func Load(configPath string) (*BridgeConfig, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("engine.memory_limit_pages", 0)
	v.SetDefault("engine.host_memory", false)
	v.SetDefault("engine.host_memory_module", "env")
	v.SetDefault("engine.host_memory_min", 1)
	v.SetDefault("region.offset", 0)
	v.SetDefault("region.capacity", 4096)
	v.SetDefault("region.use_allocator", false)
	v.SetDefault("codec.max_encoded_size", 16<<20)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg BridgeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
