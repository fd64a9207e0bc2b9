package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var (
	errTimeoutOutOfRange   = errors.New("config: timeout must be between 1s and 5m")
	errRedirectsOutOfRange = errors.New("config: max_redirects must be 1-30")
)

// Config holds ambient settings resolved from flags, environment variables
// (LOGINPROBE_* prefix), and defaults via viper.
type Config struct {
	LogLevel     string
	Timeout      time.Duration
	MaxRedirects int
	SafelistPath string
	BlockPrivate bool
	Insecure     bool
}

// Load reads configuration from the given viper instance.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		LogLevel:     v.GetString("log_level"),
		Timeout:      v.GetDuration("timeout"),
		MaxRedirects: v.GetInt("max_redirects"),
		SafelistPath: v.GetString("safelist"),
		BlockPrivate: v.GetBool("block_private"),
		Insecure:     v.GetBool("insecure"),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Timeout < time.Second || c.Timeout > 5*time.Minute {
		return fmt.Errorf("%w: got %s", errTimeoutOutOfRange, c.Timeout)
	}

	if c.MaxRedirects < 1 || c.MaxRedirects > 30 {
		return fmt.Errorf("%w: got %d", errRedirectsOutOfRange, c.MaxRedirects)
	}

	return nil
}
