package passcode

import (
	"io"
	"time"

	"golang.org/x/time/rate"
)

// Option applies a configuration option to the Issuer.
type Option func(*Issuer)

// WithDigits sets the code width. Values outside [4,9] are ignored.
func WithDigits(digits int) Option {
	return func(i *Issuer) {
		if digits >= minDigits && digits <= maxDigits {
			i.digits = digits
		}
	}
}

// WithSubject sets the message subject line.
func WithSubject(subject string) Option {
	return func(i *Issuer) {
		if subject != "" {
			i.subject = subject
		}
	}
}

// WithRatePerMinute caps issuance per participant. Zero or less disables the cap.
func WithRatePerMinute(n int) Option {
	return func(i *Issuer) {
		if n > 0 {
			i.limit = rate.Every(time.Minute / time.Duration(n))
			i.burst = n
		}
	}
}

// WithRandom replaces the entropy source. Intended for tests.
func WithRandom(r io.Reader) Option {
	return func(i *Issuer) {
		if r != nil {
			i.random = r
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}
