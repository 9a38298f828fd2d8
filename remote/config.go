package remote

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
)

type Config struct {
	BaseURL              string `koanf:"base_url" mapstructure:"base_url"`
	GraphQLPath          string `koanf:"graphql_path" mapstructure:"graphql_path"`
	DownloadPath         string `koanf:"download_path" mapstructure:"download_path"`
	UploadPath           string `koanf:"upload_path" mapstructure:"upload_path"`
	Username             string `koanf:"username" mapstructure:"username"`
	Password             string `koanf:"password" mapstructure:"password"`
	Token                string `koanf:"token" mapstructure:"token"`
	TimeoutSeconds       int    `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxResponseBodyBytes int64  `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

func DefaultConfig() Config {
	return Config{
		GraphQLPath:          "/graphql",
		DownloadPath:         "/infomodel/download",
		UploadPath:           "/infomodel/upload",
		TimeoutSeconds:       30,
		MaxResponseBodyBytes: 32 << 20,
	}
}

func (c Config) Validate() error {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return fmt.Errorf("remote: base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || !parsed.IsAbs() {
		return fmt.Errorf("remote: base_url %q must be an absolute url", base)
	}
	if strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.Username) != "" {
		return fmt.Errorf("remote: token and username are mutually exclusive")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("remote: timeout_seconds must be >= 0")
	}
	if c.MaxResponseBodyBytes < 0 {
		return fmt.Errorf("remote: max_response_body_bytes must be >= 0")
	}
	return nil
}

func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig builds a Config from raw key/value input over DefaultConfig.
func LoadConfig(raw map[string]any) (Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	return cfgx.Build[Config](raw,
		cfgx.WithDefaults(DefaultConfig()),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
}
