package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/peereval/internal/adapters/http/api"
	"github.com/okian/peereval/internal/adapters/http/site"
	"github.com/okian/peereval/internal/adapters/http/swagger"
	"github.com/okian/peereval/internal/adapters/mailer"
	"github.com/okian/peereval/internal/adapters/repository"
	"github.com/okian/peereval/internal/adapters/roster"
	"github.com/okian/peereval/internal/adapters/sessionstore"
	app "github.com/okian/peereval/internal/app"
	"github.com/okian/peereval/internal/config"
	"github.com/okian/peereval/internal/domain/passcode"
	"github.com/okian/peereval/internal/domain/reconcile"
	"github.com/okian/peereval/internal/domain/rubric"
	"github.com/okian/peereval/pkg/logger"
)

const sheetsRequestTimeout = 20 * time.Second

type application struct {
	svc     *app.Service
	handler http.Handler
}

func (a *application) close() { a.svc.Stop() }

// build loads the roster, selects drivers from cfg, starts the service and
// registers every route.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*application, error) {
	people, err := roster.LoadFile(ctx, cfg.RosterPath, roster.WithColumns(roster.Columns{
		ID:    cfg.RosterIDColumn,
		Name:  cfg.RosterNameColumn,
		Group: cfg.RosterGroupColumn,
		Email: cfg.RosterEmailColumn,
	}))
	if err != nil {
		return nil, err
	}

	sender, err := newSender(cfg, log)
	if err != nil {
		return nil, err
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sessions, err := newSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithRoster(people),
		app.WithIssuer(passcode.NewIssuer(sender, log.Named("passcode"),
			passcode.WithDigits(cfg.CodeDigits),
			passcode.WithSubject(cfg.MailSubject),
			passcode.WithRatePerMinute(cfg.CodeRatePerMinute),
		)),
		app.WithSessions(sessions),
		app.WithCollector(rubric.NewCollector(
			rubric.WithCriteria(cfg.Criteria),
			rubric.WithLowScoreThreshold(cfg.LowScoreThreshold),
		)),
		app.WithReconciler(reconcile.New(store, log.Named("reconcile"))),
		app.WithCodeTTL(cfg.CodeTTL()),
		app.WithFormText(cfg.Title, cfg.Notice),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithLogger(log.Named("api")),
		api.WithCookieTTL(cfg.SessionTTL()),
	).Register(ctx, mux)
	site.Register(ctx, mux)

	log.Info(ctx, "drivers selected",
		logger.String("mail", cfg.MailDriver),
		logger.String("store", cfg.StoreDriver),
		logger.String("sessions", cfg.SessionDriver),
	)
	return &application{svc: svc, handler: mux}, nil
}

func newSender(cfg *config.Config, log logger.Logger) (passcode.Sender, error) {
	switch cfg.MailDriver {
	case "smtp":
		return mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPSender, cfg.SMTPPassword, mailer.WithPort(cfg.SMTPPort)), nil
	case "log":
		log.Warn(context.Background(), "mail_driver=log writes passcodes to the log; do not use in production")
		return mailer.NewLogSender(log.Named("mail")), nil
	default:
		return nil, fmt.Errorf("%w: mail_driver %q", config.ErrInvalidConfig, cfg.MailDriver)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (reconcile.Store, error) {
	switch cfg.StoreDriver {
	case "sheets":
		return repository.NewSheetsStore(ctx, cfg.SheetsSpreadsheetID,
			repository.WithSheetName(cfg.SheetsSheetName),
			repository.WithCredentialsFile(cfg.SheetsCredentialsFile),
			repository.WithRequestTimeout(sheetsRequestTimeout),
		)
	case "memory":
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

func newSessions(ctx context.Context, cfg *config.Config) (sessionstore.Registry, error) {
	switch cfg.SessionDriver {
	case "redis":
		return sessionstore.Dial(ctx, cfg.RedisURL, cfg.SessionTTL())
	case "memory":
		return sessionstore.NewMemoryRegistry(), nil
	default:
		return nil, fmt.Errorf("%w: session_driver %q", config.ErrInvalidConfig, cfg.SessionDriver)
	}
}
