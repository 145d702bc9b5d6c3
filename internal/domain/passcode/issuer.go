// Package passcode generates one-time codes and dispatches them to participants.
package passcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/peereval/internal/domain/model"
	"github.com/okian/peereval/pkg/logger"
	"github.com/okian/peereval/pkg/metrics"
)

const (
	defaultDigits  = 6
	minDigits      = 4
	maxDigits      = 9
	defaultSubject = "Peer Eval Code"
)

// Sender delivers a human-readable message to an address.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Issuer creates challenges and hands their codes to a Sender.
type Issuer struct {
	sender  Sender
	logger  logger.Logger
	digits  int
	subject string
	random  io.Reader
	now     func() time.Time

	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewIssuer constructs an Issuer that dispatches through sender.
func NewIssuer(sender Sender, log logger.Logger, opts ...Option) *Issuer {
	i := &Issuer{
		sender:   sender,
		logger:   log,
		digits:   defaultDigits,
		subject:  defaultSubject,
		random:   rand.Reader,
		now:      time.Now,
		limit:    rate.Inf,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Digits reports the configured code width.
func (i *Issuer) Digits() int { return i.digits }

// Issue binds a fresh code to subject and sends it to subject.Email.
//
// When delivery fails the returned Challenge is still valid and the error wraps
// ErrDeliveryFailed; callers keep the challenge so the user can retry or
// obtain the code out of band.
func (i *Issuer) Issue(ctx context.Context, subject model.Participant) (model.Challenge, error) {
	if subject.Email == "" {
		return model.Challenge{}, fmt.Errorf("%w: %s", ErrNoRecipient, subject.ID)
	}
	if !i.allow(subject.ID) {
		metrics.RecordIssuanceThrottled()
		return model.Challenge{}, fmt.Errorf("%w: %s", ErrRateLimited, subject.ID)
	}

	code, err := i.generate()
	if err != nil {
		return model.Challenge{}, fmt.Errorf("generate passcode: %w", err)
	}
	ch := model.Challenge{Subject: subject, Code: code, IssuedAt: i.now()}
	metrics.RecordCodeIssued()

	if err := i.sender.Send(ctx, subject.Email, i.subject, "Your Code is: "+code); err != nil {
		metrics.RecordDeliveryFailure()
		i.logger.Warn(ctx, "passcode delivery failed",
			logger.String("participant", subject.ID),
			logger.Error(err),
		)
		return ch, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	i.logger.Info(ctx, "passcode sent", logger.String("participant", subject.ID))
	return ch, nil
}

// generate draws a uniform code in [10^(d-1), 10^d).
func (i *Issuer) generate() (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(i.digits-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))
	n, err := rand.Int(i.random, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, low).String(), nil
}

func (i *Issuer) allow(id string) bool {
	if i.limit == rate.Inf {
		return true
	}
	i.mu.Lock()
	l, ok := i.limiters[id]
	if !ok {
		l = rate.NewLimiter(i.limit, i.burst)
		i.limiters[id] = l
	}
	i.mu.Unlock()
	return l.Allow()
}
