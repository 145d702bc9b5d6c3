// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers defaults, an optional YAML file, an optional .env file and the environment.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Metrics exposed on /healthz.
	MetricsEnabled     bool              `koanf:"metrics_enabled"`
	MetricsNamespace   string            `koanf:"metrics_namespace"`
	MetricsHTTPBuckets []float64         `koanf:"metrics_http_buckets"`
	MetricsLabels      map[string]string `koanf:"metrics_labels"`

	// Roster file and the header names of its columns.
	RosterPath        string `koanf:"roster_path"`
	RosterIDColumn    string `koanf:"roster_id_column"`
	RosterNameColumn  string `koanf:"roster_name_column"`
	RosterGroupColumn string `koanf:"roster_group_column"`
	RosterEmailColumn string `koanf:"roster_email_column"`

	// CodeDigits is the passcode width.
	CodeDigits int `koanf:"code_digits"`
	// CodeTTLSeconds bounds how long a passcode is accepted. 0 disables expiry.
	CodeTTLSeconds int `koanf:"code_ttl_seconds"`
	// CodeRatePerMinute caps passcode sends per participant. 0 disables the cap.
	CodeRatePerMinute int `koanf:"code_rate_per_minute"`

	// MailDriver is "smtp" or "log".
	MailDriver   string `koanf:"mail_driver"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPSender   string `koanf:"smtp_sender"`
	SMTPPassword string `koanf:"smtp_password"`
	MailSubject  string `koanf:"mail_subject"`

	// StoreDriver is "sheets" or "memory".
	StoreDriver           string `koanf:"store_driver"`
	SheetsSpreadsheetID   string `koanf:"sheets_spreadsheet_id"`
	SheetsSheetName       string `koanf:"sheets_sheet_name"`
	SheetsCredentialsFile string `koanf:"sheets_credentials_file"`

	// SessionDriver is "memory" or "redis".
	SessionDriver     string `koanf:"session_driver"`
	RedisURL          string `koanf:"redis_url"`
	SessionTTLSeconds int    `koanf:"session_ttl_seconds"`

	// Rubric shown on the evaluation form.
	Criteria          []string `koanf:"criteria"`
	LowScoreThreshold float64  `koanf:"low_score_threshold"`

	// Title and Notice are rendered above the form.
	Title  string `koanf:"title"`
	Notice string `koanf:"notice"`
}

// New creates a Config with defaults. Context is accepted first per project convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		MetricsEnabled:    true,
		MetricsNamespace:  "peereval",
		RosterPath:        "students.csv",
		RosterIDColumn:    "Student ID",
		RosterNameColumn:  "Student Name",
		RosterGroupColumn: "Group #",
		RosterEmailColumn: "Email",
		CodeDigits:        6,
		MailDriver:        "log",
		SMTPPort:          465,
		MailSubject:       "Peer Eval Code",
		StoreDriver:       "memory",
		SheetsSheetName:   "Sheet1",
		SessionDriver:     "memory",
		SessionTTLSeconds: 12 * 60 * 60,
		Criteria: []string{
			"Attendance at Meetings",
			"Meeting Deadlines",
			"Quality of Work",
			"Amount of Work",
			"Attitudes & Commitment",
		},
		LowScoreThreshold: 80,
		Title:             "Self and Peer Review",
		Notice:            defaultNotice,
	}
}

// CodeTTL returns the passcode validity window, zero when disabled.
func (c *Config) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLSeconds) * time.Second
}

// SessionTTL returns the lifetime of a stored session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

const defaultNotice = `This evaluation is confidential. Do not show your vote to others, nor try to see or discuss others' votes. ` +
	`Do not base your evaluations on friendship or personality conflicts. ` +
	`Evaluate the contributions of every team member, including yourself, from 0% (did not contribute anything) to 100% (very good job). ` +
	`You may submit again at any time; your latest submission replaces the previous one.`
