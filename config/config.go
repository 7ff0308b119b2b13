package config

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "2s" or "720h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "cannot parse duration '%v'", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the service configuration. Values from the YAML file can be
// overridden by environment variables.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	RedisURL   string `yaml:"redis_url"`

	// StrictAuthority requires on-chain threshold resolution; disable
	// only in development.
	StrictAuthority bool `yaml:"strict_authority"`

	Relay struct {
		Host          string   `yaml:"host"`
		AttachRetries int      `yaml:"attach_retries"`
		AttachBackoff Duration `yaml:"attach_backoff"`
	} `yaml:"relay"`

	Custody struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"custody"`

	OAuth struct {
		// ReaskDenialAfter re-enables a denied consent prompt after this
		// window; zero keeps denials permanent.
		ReaskDenialAfter Duration `yaml:"reask_denial_after"`
	} `yaml:"oauth"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		ListenAddr:      ":9000",
		RedisURL:        "redis://localhost:6379/0",
		StrictAuthority: true,
	}
	cfg.Relay.Host = "wss://hive-auth.arcange.eu"
	cfg.Relay.AttachRetries = 3
	cfg.Relay.AttachBackoff = Duration(2 * time.Second)
	return cfg
}

// Load reads the configuration file and applies environment overrides.
// A missing path yields the defaults.
func Load(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		fileDesc, err := os.Open(filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot open file '%v'", filePath)
		}
		defer fileDesc.Close()

		configBytes, err := ioutil.ReadAll(fileDesc)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read file '%v'", filePath)
		}

		if err := yaml.Unmarshal(configBytes, cfg); err != nil {
			return nil, errors.Wrapf(err, "cannot parse config from file '%v'", filePath)
		}
	}

	if v := os.Getenv("WARDEN_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("WARDEN_RELAY_HOST"); v != "" {
		cfg.Relay.Host = v
	}
	if v := os.Getenv("WARDEN_CUSTODY_ENDPOINT"); v != "" {
		cfg.Custody.Endpoint = v
	}

	return cfg, nil
}
