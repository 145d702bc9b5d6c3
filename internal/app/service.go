// Package service wires the roster, passcode issuer, guard sessions, rubric and
// reconciler into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/peereval/internal/adapters/roster"
	"github.com/okian/peereval/internal/adapters/sessionstore"
	"github.com/okian/peereval/internal/domain/model"
	"github.com/okian/peereval/internal/domain/passcode"
	"github.com/okian/peereval/internal/domain/reconcile"
	"github.com/okian/peereval/internal/domain/rubric"
	"github.com/okian/peereval/internal/domain/session"
	"github.com/okian/peereval/pkg/logger"
	"github.com/okian/peereval/pkg/metrics"
)

// sessionLockStripes bounds the number of mutexes guarding load/modify/save
// cycles on stored sessions.
const sessionLockStripes = 64

// ErrNotConfigured is returned by Start when a required component is missing.
var ErrNotConfigured = errors.New("service not configured")

// Service implements the API dependencies for the evaluation flow.
type Service struct {
	mu sync.RWMutex

	// Core components
	roster     *roster.Roster
	issuer     *passcode.Issuer
	sessions   sessionstore.Registry
	collector  *rubric.Collector
	reconciler *reconcile.Reconciler

	// Configuration
	codeTTL time.Duration
	title   string
	notice  string
	now     func() time.Time

	stripes [sessionLockStripes]sync.Mutex
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRoster sets the participant roster.
func WithRoster(r *roster.Roster) Option {
	return func(s *Service) { s.roster = r }
}

// WithIssuer sets the passcode issuer.
func WithIssuer(i *passcode.Issuer) Option {
	return func(s *Service) { s.issuer = i }
}

// WithSessions sets the session registry. Defaults to an in-memory registry.
func WithSessions(r sessionstore.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.sessions = r
		}
	}
}

// WithCollector sets the rubric collector. Defaults to the standard rubric.
func WithCollector(c *rubric.Collector) Option {
	return func(s *Service) {
		if c != nil {
			s.collector = c
		}
	}
}

// WithReconciler sets the dataset reconciler.
func WithReconciler(r *reconcile.Reconciler) Option {
	return func(s *Service) { s.reconciler = r }
}

// WithCodeTTL bounds how long an issued passcode is accepted. Zero disables expiry.
func WithCodeTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.codeTTL = d
		}
	}
}

// WithFormText sets the title and notice shown with the form.
func WithFormText(title, notice string) Option {
	return func(s *Service) {
		s.title = title
		s.notice = notice
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service. Start must be called before use.
func New(opts ...Option) *Service {
	s := &Service{
		sessions:  sessionstore.NewMemoryRegistry(),
		collector: rubric.NewCollector(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start checks that every component is present and publishes roster metrics.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	switch {
	case s.roster == nil:
		return fmt.Errorf("%w: roster", ErrNotConfigured)
	case s.issuer == nil:
		return fmt.Errorf("%w: passcode issuer", ErrNotConfigured)
	case s.reconciler == nil:
		return fmt.Errorf("%w: reconciler", ErrNotConfigured)
	}

	metrics.UpdateRosterSize(s.roster.Len())
	s.started = true
	s.logger.Info(ctx, "evaluation service started",
		logger.Int("participants", s.roster.Len()),
		logger.Int("groups", len(s.roster.Groups())),
		logger.Int("criteria", len(s.collector.Criteria())),
		logger.Duration("codeTTL", s.codeTTL),
	)
	return nil
}

// Stop releases the session registry when it holds external resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if closer, ok := s.sessions.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "evaluation service stopped")
}

// Started reports whether Start has completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *Service) lock(sid string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sid))
	m := &s.stripes[h.Sum32()%sessionLockStripes]
	m.Lock()
	return m.Unlock
}

// Participants returns the distinct roster names, sorted, for the login picker.
func (s *Service) Participants(_ context.Context) []string {
	return s.roster.Names()
}

// Session returns the stored guard session for sid.
func (s *Service) Session(ctx context.Context, sid string) (session.Session, error) {
	return s.sessions.Load(ctx, sid)
}

// RequestCode issues a passcode to the participant named name and binds it to sid.
//
// Unknown names leave the session untouched. When delivery fails the challenge
// is still stored and the returned error wraps passcode.ErrDeliveryFailed.
func (s *Service) RequestCode(ctx context.Context, sid, name string) (model.Participant, error) {
	defer s.lock(sid)()

	current, err := s.sessions.Load(ctx, sid)
	if err != nil {
		return model.Participant{}, err
	}
	if current.State() == session.Authenticated {
		return model.Participant{}, session.ErrAlreadyAuthenticated
	}

	p, err := s.roster.FindByName(name)
	if err != nil {
		return model.Participant{}, err
	}

	ch, issueErr := s.issuer.Issue(ctx, p)
	if issueErr != nil && !errors.Is(issueErr, passcode.ErrDeliveryFailed) {
		return p, issueErr
	}

	next, err := session.Begin(current, ch)
	if err != nil {
		return p, err
	}
	if err := s.sessions.Save(ctx, sid, next); err != nil {
		return p, err
	}
	return p, issueErr
}

// Verify checks code against the pending challenge of sid.
//
// The claimed identity is participantID, else the roster id of name, else the
// challenge subject. A mismatch leaves the challenge in place.
func (s *Service) Verify(ctx context.Context, sid, participantID, name, code string) (model.Participant, error) {
	defer s.lock(sid)()

	current, err := s.sessions.Load(ctx, sid)
	if err != nil {
		return model.Participant{}, err
	}

	claimed := participantID
	switch {
	case claimed != "":
	case name != "":
		p, err := s.roster.FindByName(name)
		if err != nil {
			metrics.RecordVerification("unknown")
			return model.Participant{}, err
		}
		claimed = p.ID
	case current.Challenge != nil:
		claimed = current.Challenge.Subject.ID
	}

	next, err := session.Verify(current, claimed, code, s.now(), s.codeTTL)
	if err != nil {
		metrics.RecordVerification(verificationResult(err))
		s.logger.Debug(ctx, "passcode rejected", logger.String("participant", claimed), logger.Error(err))
		return model.Participant{}, err
	}
	if err := s.sessions.Save(ctx, sid, next); err != nil {
		return model.Participant{}, err
	}

	metrics.RecordVerification("ok")
	s.logger.Info(ctx, "participant authenticated", logger.String("participant", next.Identity.ID))
	return *next.Identity, nil
}

func verificationResult(err error) string {
	switch {
	case errors.Is(err, session.ErrChallengeMismatch):
		return "mismatch"
	case errors.Is(err, session.ErrChallengeExpired):
		return "expired"
	case errors.Is(err, session.ErrNoChallenge):
		return "no_challenge"
	case errors.Is(err, session.ErrAlreadyAuthenticated):
		return "already_authenticated"
	default:
		return "error"
	}
}

// Logout resets sid to Anonymous.
func (s *Service) Logout(ctx context.Context, sid string) error {
	defer s.lock(sid)()
	return s.sessions.Delete(ctx, sid)
}

// Member is one row of the evaluation form.
type Member struct {
	model.Participant
	Self bool `json:"self"`
}

// Form describes what the authenticated evaluator is asked to fill in.
type Form struct {
	Title             string            `json:"title"`
	Notice            string            `json:"notice"`
	Evaluator         model.Participant `json:"evaluator"`
	Criteria          []string          `json:"criteria"`
	MinScore          int               `json:"min_score"`
	MaxScore          int               `json:"max_score"`
	DefaultScore      int               `json:"default_score"`
	ScoreStep         int               `json:"score_step"`
	LowScoreThreshold float64           `json:"low_score_threshold"`
	Members           []Member          `json:"members"`
}

// Form returns the rubric and group members for the authenticated evaluator.
func (s *Service) Form(ctx context.Context, sid string) (Form, error) {
	who, err := s.identity(ctx, sid)
	if err != nil {
		return Form{}, err
	}
	group := s.roster.Group(who.Group)
	members := make([]Member, 0, len(group))
	for _, p := range group {
		members = append(members, Member{Participant: p, Self: p.ID == who.ID})
	}
	return Form{
		Title:             s.title,
		Notice:            s.notice,
		Evaluator:         who,
		Criteria:          s.collector.Criteria(),
		MinScore:          rubric.MinScore,
		MaxScore:          rubric.MaxScore,
		DefaultScore:      rubric.DefaultScore,
		ScoreStep:         rubric.ScoreStep,
		LowScoreThreshold: s.collector.LowScoreThreshold(),
		Members:           members,
	}, nil
}

// Row is one collected record with its display values.
type Row struct {
	model.EvaluationRecord
	Scores  []model.CriterionScore `json:"scores"`
	Display float64                `json:"display_score"`
	Self    bool                   `json:"self"`
}

// Preview is the collected evaluation before it is saved.
type Preview struct {
	Rows     []Row            `json:"rows"`
	Warnings []rubric.Warning `json:"warnings"`
}

// Preview collects inputs for the authenticated evaluator without saving.
func (s *Service) Preview(ctx context.Context, sid string, inputs map[string]rubric.Input) (Preview, error) {
	who, err := s.identity(ctx, sid)
	if err != nil {
		return Preview{}, err
	}
	records, err := s.collect(who, inputs)
	if err != nil {
		return Preview{}, err
	}
	return s.preview(who, records), nil
}

// Receipt reports a saved submission.
type Receipt struct {
	Preview
	SavedAt time.Time `json:"saved_at"`
}

// Submit collects inputs and replaces the evaluator's rows in the dataset.
// The session stays authenticated so the evaluator can submit again.
func (s *Service) Submit(ctx context.Context, sid string, inputs map[string]rubric.Input) (Receipt, error) {
	who, err := s.identity(ctx, sid)
	if err != nil {
		return Receipt{}, err
	}
	records, err := s.collect(who, inputs)
	if err != nil {
		metrics.RecordSubmission("invalid")
		return Receipt{}, err
	}

	if err := s.reconciler.Reconcile(ctx, who.ID, records); err != nil {
		metrics.RecordSubmission("failed")
		return Receipt{}, err
	}

	metrics.RecordSubmission("saved")
	return Receipt{Preview: s.preview(who, records), SavedAt: records[0].Timestamp}, nil
}

func (s *Service) identity(ctx context.Context, sid string) (model.Participant, error) {
	current, err := s.sessions.Load(ctx, sid)
	if err != nil {
		return model.Participant{}, err
	}
	return session.Identity(current)
}

func (s *Service) collect(who model.Participant, inputs map[string]rubric.Input) ([]model.EvaluationRecord, error) {
	return s.collector.Collect(who, s.roster.Group(who.Group), inputs, s.now())
}

func (s *Service) preview(who model.Participant, records []model.EvaluationRecord) Preview {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		scores, _ := s.collector.Breakdown(r)
		rows = append(rows, Row{
			EvaluationRecord: r,
			Scores:           scores,
			Display:          rubric.Round1(r.OverallScore),
			Self:             r.PeerID == who.ID,
		})
	}
	return Preview{Rows: rows, Warnings: s.collector.Warnings(records)}
}
