package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/okian/peereval/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.MailDriver, convey.ShouldEqual, "log")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.SessionDriver, convey.ShouldEqual, "memory")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PEEREVAL_ADDR", ":8080")
			_ = os.Setenv("PEEREVAL_CODE_DIGITS", "4")
			_ = os.Setenv("PEEREVAL_CODE_TTL_SECONDS", "300")
			_ = os.Setenv("PEEREVAL_CRITERIA", "Attendance, Quality,")
			_ = os.Setenv("PEEREVAL_METRICS_NAMESPACE", "course")
			_ = os.Setenv("PEEREVAL_METRICS_HTTP_BUCKETS", "10,100,1000")
			_ = os.Setenv("PEEREVAL_METRICS_LABELS", "course=cs101, term=fall")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.CodeDigits, convey.ShouldEqual, 4)
				convey.So(cfg.CodeTTLSeconds, convey.ShouldEqual, 300)
				convey.So(cfg.Criteria, convey.ShouldResemble, []string{"Attendance", "Quality"})
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "course")
				convey.So(cfg.MetricsHTTPBuckets, convey.ShouldResemble, []float64{10, 100, 1000})
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"course": "cs101", "term": "fall"})
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempFile("peereval-config-*.yaml", `
addr: ":9090"
roster_path: "roster.csv"
store_driver: sheets
sheets_spreadsheet_id: "abc123"
sheets_credentials_file: "/etc/peereval/sa.json"
criteria:
  - Attendance
  - Quality of Work
  - Amount of Work
metrics_enabled: false
metrics_labels:
  course: cs101
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PEEREVAL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep defaults elsewhere", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.RosterPath, convey.ShouldEqual, "roster.csv")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sheets")
				convey.So(cfg.SheetsSheetName, convey.ShouldEqual, "Sheet1")
				convey.So(cfg.Criteria, convey.ShouldHaveLength, 3)
				convey.So(cfg.CodeDigits, convey.ShouldEqual, 6)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"course": "cs101"})
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "peereval")
			})
		})

		convey.Convey("When the file and the environment disagree", func() {
			tmpFile := createTempFile("peereval-config-*.yaml", "addr: \":9090\"\ncode_digits: 8\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PEEREVAL_CONFIG", tmpFile)
			_ = os.Setenv("PEEREVAL_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.CodeDigits, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading a .env file", func() {
			envFile := createTempFile("peereval-*.env", "PEEREVAL_MAIL_DRIVER=smtp\nPEEREVAL_SMTP_HOST=smtp.example.com\nPEEREVAL_SMTP_SENDER=noreply@example.com\nPEEREVAL_SMTP_PASSWORD=secret\n")
			defer func() { _ = os.Remove(envFile) }()
			_ = os.Setenv("PEEREVAL_ENV_FILE", envFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then its variables are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MailDriver, convey.ShouldEqual, "smtp")
				convey.So(cfg.SMTPHost, convey.ShouldEqual, "smtp.example.com")
				convey.So(cfg.SMTPPassword, convey.ShouldEqual, "secret")
				convey.So(cfg.SMTPPort, convey.ShouldEqual, 465)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempFile("peereval-config-*.yaml", `invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("PEEREVAL_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("PEEREVAL_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PEEREVAL_CODE_DIGITS", "six")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given config validation", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		cases := []struct {
			name string
			env  map[string]string
			want string
		}{
			{"empty addr", map[string]string{"PEEREVAL_ADDR": ""}, "addr must not be empty"},
			{"unsorted buckets", map[string]string{"PEEREVAL_METRICS_HTTP_BUCKETS": "100,10"}, "strictly increasing"},
			{"empty metrics namespace", map[string]string{"PEEREVAL_METRICS_NAMESPACE": ""}, "metrics_namespace"},
			{"short code", map[string]string{"PEEREVAL_CODE_DIGITS": "3"}, "code_digits"},
			{"negative ttl", map[string]string{"PEEREVAL_CODE_TTL_SECONDS": "-1"}, "must not be negative"},
			{"unknown mail driver", map[string]string{"PEEREVAL_MAIL_DRIVER": "pigeon"}, "unknown mail_driver"},
			{"smtp without host", map[string]string{"PEEREVAL_MAIL_DRIVER": "smtp"}, "smtp_host"},
			{"sheets without id", map[string]string{"PEEREVAL_STORE_DRIVER": "sheets"}, "sheets_spreadsheet_id"},
			{"redis without url", map[string]string{"PEEREVAL_SESSION_DRIVER": "redis"}, "redis_url"},
			{"unknown session driver", map[string]string{"PEEREVAL_SESSION_DRIVER": "cookie"}, "unknown session_driver"},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				for k, v := range tc.env {
					_ = os.Setenv(k, v)
				}

				cfg, err := config.Load(ctx)

				convey.Convey("Then it is rejected as invalid", func() {
					convey.So(cfg, convey.ShouldBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.want)
				})
			})
		}
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "PEEREVAL_") {
			_ = os.Unsetenv(name)
		}
	}
}

func createTempFile(pattern, content string) string {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
