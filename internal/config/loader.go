package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PEEREVAL_"

// Load builds a Config by layering, low to high precedence:
//  1. defaults (New)
//  2. YAML file if PEEREVAL_CONFIG is set
//  3. env (prefix PEEREVAL_), after PEEREVAL_ENV_FILE (if set) is loaded into the environment
//
// Variables already present in the environment win over the .env file.
// List keys (criteria, metrics_http_buckets) take comma-separated env values and
// metrics_labels takes "key=value" pairs, e.g. PEEREVAL_METRICS_LABELS=course=cs101,term=fall.
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	if path := os.Getenv(envPrefix + "ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PEEREVAL_SMTP_HOST -> smtp_host. Underscores are kept to match koanf tags.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		switch key {
		case "criteria", "metrics_http_buckets":
			return key, splitList(value)
		case "metrics_labels":
			return key, splitPairs(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func splitPairs(value string) map[string]any {
	out := make(map[string]any)
	for _, item := range splitList(value) {
		k, v, _ := strings.Cut(item, "=")
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RosterPath == "":
		return fmt.Errorf("%w: roster_path must not be empty", ErrInvalidConfig)
	case c.CodeDigits < 4 || c.CodeDigits > 9:
		return fmt.Errorf("%w: code_digits must be between 4 and 9", ErrInvalidConfig)
	case c.CodeTTLSeconds < 0 || c.CodeRatePerMinute < 0:
		return fmt.Errorf("%w: code limits must not be negative", ErrInvalidConfig)
	case len(c.Criteria) == 0:
		return fmt.Errorf("%w: criteria must not be empty", ErrInvalidConfig)
	case c.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	case !slices.IsSorted(c.MetricsHTTPBuckets) || len(slices.Compact(slices.Clone(c.MetricsHTTPBuckets))) != len(c.MetricsHTTPBuckets):
		return fmt.Errorf("%w: metrics_http_buckets must be strictly increasing", ErrInvalidConfig)
	}

	switch c.MailDriver {
	case "log":
	case "smtp":
		if c.SMTPHost == "" || c.SMTPSender == "" {
			return fmt.Errorf("%w: smtp_host and smtp_sender are required for the smtp mail driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mail_driver %q", ErrInvalidConfig, c.MailDriver)
	}

	switch c.StoreDriver {
	case "memory":
	case "sheets":
		if c.SheetsSpreadsheetID == "" || c.SheetsCredentialsFile == "" {
			return fmt.Errorf("%w: sheets_spreadsheet_id and sheets_credentials_file are required for the sheets store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	switch c.SessionDriver {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis_url is required for the redis session driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session_driver %q", ErrInvalidConfig, c.SessionDriver)
	}
	return nil
}
