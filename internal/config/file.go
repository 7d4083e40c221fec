package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// File is the on-disk configuration of the vmcctl command.
type File struct {
	Network        string
	Address        string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	LivenessWindow time.Duration
	LogLevel       string
	MetricsAddress string
	Trackers       []string
}

type fileConfig struct {
	Network        string   `toml:"network"`
	Address        string   `toml:"address"`
	DialTimeout    string   `toml:"dial_timeout"`
	RequestTimeout string   `toml:"request_timeout"`
	LivenessWindow string   `toml:"liveness_window"`
	LogLevel       string   `toml:"log_level"`
	MetricsAddress string   `toml:"metrics_address"`
	Trackers       []string `toml:"trackers"`
}

// envConfig holds environment overrides. Unset variables leave the file
// value alone.
type envConfig struct {
	Network        string        `env:"VMCCTL_NETWORK"`
	Address        string        `env:"VMCCTL_ADDRESS"`
	DialTimeout    time.Duration `env:"VMCCTL_DIAL_TIMEOUT"`
	RequestTimeout time.Duration `env:"VMCCTL_REQUEST_TIMEOUT"`
	LivenessWindow time.Duration `env:"VMCCTL_LIVENESS_WINDOW"`
	LogLevel       string        `env:"VMCCTL_LOG_LEVEL"`
	MetricsAddress string        `env:"VMCCTL_METRICS_ADDRESS"`
}

// DefaultFile returns the configuration used when no file is given.
func DefaultFile() File {
	return File{
		Network:     DefaultNetwork,
		Address:     DefaultAddress,
		DialTimeout: DefaultDialTimeout,
		LogLevel:    "info",
	}
}

// LoadFile reads a TOML configuration file on top of DefaultFile.
// Keys absent from the file keep their default.
func LoadFile(path string) (File, error) {
	cfg := DefaultFile()

	var raw fileConfig

	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return File{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("network") {
		cfg.Network = strings.TrimSpace(raw.Network)
	}

	if meta.IsDefined("address") {
		cfg.Address = strings.TrimSpace(raw.Address)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("metrics_address") {
		cfg.MetricsAddress = strings.TrimSpace(raw.MetricsAddress)
	}

	if meta.IsDefined("trackers") {
		cfg.Trackers = normalizeList(raw.Trackers)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"dial_timeout", raw.DialTimeout, &cfg.DialTimeout},
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
		{"liveness_window", raw.LivenessWindow, &cfg.LivenessWindow},
	}

	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}

		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return File{}, fmt.Errorf("parse %s: %w", d.key, err)
		}

		*d.dst = v
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment, without overriding variables that are already set. Missing
// files are not an error.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}

	return nil
}

// ApplyEnv overrides cfg with VMCCTL_* environment variables.
func ApplyEnv(cfg File) (File, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return File{}, fmt.Errorf("parse environment: %w", err)
	}

	if e.Network != "" {
		cfg.Network = e.Network
	}

	if e.Address != "" {
		cfg.Address = e.Address
	}

	if e.DialTimeout > 0 {
		cfg.DialTimeout = e.DialTimeout
	}

	if e.RequestTimeout > 0 {
		cfg.RequestTimeout = e.RequestTimeout
	}

	if e.LivenessWindow > 0 {
		cfg.LivenessWindow = e.LivenessWindow
	}

	if e.LogLevel != "" {
		cfg.LogLevel = e.LogLevel
	}

	if e.MetricsAddress != "" {
		cfg.MetricsAddress = e.MetricsAddress
	}

	return cfg, nil
}

// Options converts the file configuration into client options.
func (f File) Options() *Options {
	opts := &Options{
		Network:        f.Network,
		Address:        f.Address,
		DialTimeout:    f.DialTimeout,
		RequestTimeout: f.RequestTimeout,
		LivenessWindow: f.LivenessWindow,
	}

	if len(f.Trackers) > 0 {
		known := make(map[string]struct{}, len(f.Trackers))
		for _, serial := range f.Trackers {
			known[serial] = struct{}{}
		}

		opts.TrackerFilter = func(serial string) bool {
			_, ok := known[serial]

			return ok
		}
	}

	return opts
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))

	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		out = append(out, v)
	}

	return out
}
