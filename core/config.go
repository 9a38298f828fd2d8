package core

import (
	"fmt"
	"strings"
)

type SearchConfig struct {
	DefaultLimit      int  `koanf:"default_limit" mapstructure:"default_limit"`
	SkipExcludeFilter bool `koanf:"skip_exclude_filter" mapstructure:"skip_exclude_filter"`
}

type Config struct {
	ServiceName string       `koanf:"service_name" mapstructure:"service_name"`
	Search      SearchConfig `koanf:"search" mapstructure:"search"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "cloudlib",
		Search:      SearchConfig{},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Search.DefaultLimit < 0 {
		return fmt.Errorf("core: search.default_limit must be >= 0")
	}
	return nil
}
