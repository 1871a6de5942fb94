package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Environment variable references ($VAR or ${VAR}) in the file
// are expanded before decoding, so secrets can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := LoadFromReader(strings.NewReader(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Storage.ChunkLength == 0 {
		cfg.Storage.ChunkLength = 12
	}
	if cfg.Locking.Backend == "" {
		cfg.Locking.Backend = LockMemory
	}
	if cfg.Prefetch.Parallelism == 0 {
		cfg.Prefetch.Parallelism = 2
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Storage.Root == "" {
		errs = append(errs, errors.New("storage.root is required"))
	}
	if cfg.Storage.ChunkLength < 0 {
		errs = append(errs, fmt.Errorf("storage.chunk_length %.2f must not be negative", cfg.Storage.ChunkLength))
	}

	if cfg.Locking.Backend != "" && !cfg.Locking.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("locking.backend %q is invalid; valid values: memory, redis, postgres", cfg.Locking.Backend))
	}
	if cfg.Locking.Backend == LockRedis && cfg.Locking.RedisAddr == "" {
		errs = append(errs, errors.New("locking.redis_addr is required when locking.backend is redis"))
	}
	if cfg.Locking.Backend == LockPostgres && cfg.Database.PostgresDSN == "" {
		errs = append(errs, errors.New("database.postgres_dsn is required when locking.backend is postgres"))
	}

	seen := make(map[string]int, len(cfg.Providers.Entries))
	for i, entry := range cfg.Providers.Entries {
		prefix := fmt.Sprintf("providers.entries[%d]", i)
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[entry.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of providers.entries[%d]", prefix, entry.Name, prev))
		}
		seen[entry.Name] = i

		switch entry.Name {
		case "elevenlabs":
			if entry.APIKey == "" {
				errs = append(errs, fmt.Errorf("%s: elevenlabs requires api_key", prefix))
			}
		case "playht":
			if entry.APIKey == "" || entry.UserID == "" {
				errs = append(errs, fmt.Errorf("%s: playht requires api_key and user_id", prefix))
			}
		case "xtts":
			if entry.BaseURL == "" {
				errs = append(errs, fmt.Errorf("%s: xtts requires base_url", prefix))
			}
		}
	}

	if cfg.Providers.Default != "" {
		if _, ok := seen[cfg.Providers.Default]; !ok {
			errs = append(errs, fmt.Errorf("providers.default %q is not among the configured entries", cfg.Providers.Default))
		}
	}

	if cfg.Prefetch.Count < 0 {
		errs = append(errs, fmt.Errorf("prefetch.count %d must not be negative", cfg.Prefetch.Count))
	}

	return errors.Join(errs...)
}
