package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Configuration keys. With AutomaticEnv each one is also read from the
// upper-cased environment variable (ntfy_url -> NTFY_URL).
const (
	KeyNtfyURL       = "ntfy_url"
	KeyNtfyToken     = "ntfy_token"
	KeyListenAddr    = "listen_addr"
	KeyMetricsAddr   = "metrics_addr"
	KeyNotifyTimeout = "notify_timeout"
	KeyMaxBodyBytes  = "max_body_bytes"
	KeyLogLevel      = "log_level"
	KeyLogFormat     = "log_format"
)

const configName = ".ipc-alarm-relay"

// Config is the relay configuration, loaded once at startup.
type Config struct {
	NtfyURL       string        `json:"ntfy_url"`
	NtfyToken     string        `json:"ntfy_token"`
	ListenAddr    string        `json:"listen_addr"`
	MetricsAddr   string        `json:"metrics_addr"`
	NotifyTimeout time.Duration `json:"notify_timeout"`
	MaxBodyBytes  int64         `json:"max_body_bytes"`
	LogLevel      string        `json:"log_level"`
	LogFormat     string        `json:"log_format"`
}

// SetDefaults registers the default value of every optional key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyListenAddr, "0.0.0.0:5000")
	v.SetDefault(KeyMetricsAddr, ":9100")
	v.SetDefault(KeyNotifyTimeout, 10*time.Second)
	v.SetDefault(KeyMaxBodyBytes, int64(1<<20))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	v := viper.GetViper()
	SetDefaults(v)

	if cfgFile != "" {
		// Use config file from the flag.
		v.SetConfigFile(cfgFile)
	} else {
		// Search the working directory, then home, for ".ipc-alarm-relay.yaml".
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(configName)
	}

	v.AutomaticEnv() // read in environment variables that match

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: cannot read config file: %v\n", err)
		}
	}

	if err := MergeDotEnv(v, ".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot read .env: %v\n", err)
	}
}

// MergeDotEnv layers KEY=value pairs from a dotenv file beneath the process
// environment. A missing file is not an error.
func MergeDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read %s", filepath.Base(path))
	}
	return v.MergeConfigMap(env.AllSettings())
}

// Load builds the Config from the global viper instance.
func Load() (Config, error) {
	return FromViper(viper.GetViper())
}

// FromViper builds and validates a Config.
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		NtfyURL:       v.GetString(KeyNtfyURL),
		NtfyToken:     v.GetString(KeyNtfyToken),
		ListenAddr:    v.GetString(KeyListenAddr),
		MetricsAddr:   v.GetString(KeyMetricsAddr),
		NotifyTimeout: v.GetDuration(KeyNotifyTimeout),
		MaxBodyBytes:  v.GetInt64(KeyMaxBodyBytes),
		LogLevel:      v.GetString(KeyLogLevel),
		LogFormat:     v.GetString(KeyLogFormat),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate ensures the notification endpoint is usable before the first
// alarm arrives.
func (c Config) Validate() error {
	if c.NtfyURL == "" {
		return errors.New("must specify ntfy_url (NTFY_URL)")
	}
	u, err := url.Parse(c.NtfyURL)
	if err != nil {
		return errors.Wrapf(err, "invalid ntfy_url %q", c.NtfyURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("invalid ntfy_url %q: must be an absolute http(s) URL", c.NtfyURL)
	}

	if c.NtfyToken == "" {
		return errors.New("must specify ntfy_token (NTFY_TOKEN)")
	}
	if c.ListenAddr == "" {
		return errors.New("must specify listen_addr")
	}
	if c.NotifyTimeout <= 0 {
		return errors.Errorf("notify_timeout must be positive, got %s", c.NotifyTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return errors.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}
