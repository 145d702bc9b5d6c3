package repository

import (
	"time"

	"google.golang.org/api/option"
)

// Option applies a configuration option to the SheetsStore.
type Option func(*sheetsConfig)

type sheetsConfig struct {
	sheetName  string
	timeout    time.Duration
	clientOpts []option.ClientOption
}

// WithSheetName selects the worksheet (tab). Defaults to "Sheet1".
func WithSheetName(name string) Option {
	return func(c *sheetsConfig) {
		if name != "" {
			c.sheetName = name
		}
	}
}

// WithRequestTimeout bounds each Sheets API call.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *sheetsConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCredentialsFile authenticates with a service-account key file.
func WithCredentialsFile(path string) Option {
	return func(c *sheetsConfig) {
		if path != "" {
			c.clientOpts = append(c.clientOpts, option.WithCredentialsFile(path))
		}
	}
}

// WithClientOptions passes raw options to the Sheets client, e.g. an endpoint override.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *sheetsConfig) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}
