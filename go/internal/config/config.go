package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/mcdev12/werewolf/go/internal/phaseclock"
	"github.com/mcdev12/werewolf/go/internal/statesync"
	"gopkg.in/yaml.v3"
)

// Config holds client settings. Zero values in a YAML file leave the
// defaults in place.
type Config struct {
	BaseURL           string        `yaml:"base_url"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	NightDuration     time.Duration `yaml:"night_duration"`
	DayDuration       time.Duration `yaml:"day_duration"`
	SessionPath       string        `yaml:"session_path"`
	ViewAddr          string        `yaml:"view_addr"` // empty disables the view server
	NATSURL           string        `yaml:"nats_url"`  // empty disables NATS publishing
	NATSSubjectPrefix string        `yaml:"nats_subject_prefix"`
	LogLevel          string        `yaml:"log_level"`
}

func Default() Config {
	durations := phaseclock.DefaultDurations()
	poll := statesync.DefaultConfig()
	return Config{
		BaseURL:           "http://localhost:8888",
		PollInterval:      poll.PollInterval,
		RequestTimeout:    poll.RequestTimeout,
		NightDuration:     durations.Night,
		DayDuration:       durations.Day,
		SessionPath:       "werewolf-session.db",
		NATSSubjectPrefix: "werewolf",
		LogLevel:          "info",
	}
}

// LoadFile reads a YAML config on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base url: %q", c.BaseURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval (must be positive): %s", c.PollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout (must be positive): %s", c.RequestTimeout)
	}
	if c.NightDuration <= 0 || c.DayDuration <= 0 {
		return errors.New("phase durations must be positive")
	}
	if c.SessionPath == "" {
		return errors.New("session path is required")
	}
	if c.NATSURL != "" && c.NATSSubjectPrefix == "" {
		return errors.New("nats subject prefix is required when nats url is set")
	}
	return nil
}

// Sync returns the poll settings for the state sync engine.
func (c Config) Sync() statesync.Config {
	return statesync.Config{
		PollInterval:   c.PollInterval,
		RequestTimeout: c.RequestTimeout,
	}
}

// Durations returns the nominal phase lengths for the phase clock.
func (c Config) Durations() phaseclock.Durations {
	return phaseclock.Durations{Night: c.NightDuration, Day: c.DayDuration}
}

// NATS returns the publisher settings, or false when NATS is disabled.
func (c Config) NATS() (statesync.NATSConfig, bool) {
	if c.NATSURL == "" {
		return statesync.NATSConfig{}, false
	}
	nc := statesync.DefaultNATSConfig()
	nc.URL = c.NATSURL
	nc.SubjectPrefix = c.NATSSubjectPrefix
	return nc, true
}
