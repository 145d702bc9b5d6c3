// Package rubric turns per-member score inputs into evaluation records.
package rubric

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/peereval/internal/domain/model"
)

// Score bounds and presentation hints.
const (
	MinScore         = 0
	MaxScore         = 100
	DefaultScore     = 100
	ScoreStep        = 5
	DefaultLowScore  = 80.0
	detailsSeparator = ", "
)

// DefaultCriteria is the ordered rubric used when none is configured.
var DefaultCriteria = []string{
	"Attendance at Meetings",
	"Meeting Deadlines",
	"Quality of Work",
	"Amount of Work",
	"Attitudes & Commitment",
}

// Input is what an evaluator entered for one group member.
type Input struct {
	Scores  []int  `json:"scores"`
	Comment string `json:"comment"`
}

// Warning flags a low value for display. It never blocks submission.
type Warning struct {
	PeerID    string  `json:"peer_id"`
	Criterion string  `json:"criterion,omitempty"` // empty for the overall score
	Value     float64 `json:"value"`
}

// Collector builds records for every member of the evaluator's group.
type Collector struct {
	criteria []string
	lowScore float64
}

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithCriteria replaces the rubric. Empty input is ignored.
func WithCriteria(criteria []string) Option {
	return func(c *Collector) {
		if len(criteria) > 0 {
			c.criteria = append([]string(nil), criteria...)
		}
	}
}

// WithLowScoreThreshold sets the warning threshold.
func WithLowScoreThreshold(v float64) Option {
	return func(c *Collector) {
		if v > 0 {
			c.lowScore = v
		}
	}
}

// NewCollector constructs a Collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		criteria: append([]string(nil), DefaultCriteria...),
		lowScore: DefaultLowScore,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Criteria returns a copy of the rubric labels in order.
func (c *Collector) Criteria() []string {
	return append([]string(nil), c.criteria...)
}

// LowScoreThreshold returns the warning threshold.
func (c *Collector) LowScoreThreshold() float64 { return c.lowScore }

// Defaults returns a score row with every criterion at DefaultScore.
func (c *Collector) Defaults() []int {
	out := make([]int, len(c.criteria))
	for i := range out {
		out[i] = DefaultScore
	}
	return out
}

// Collect produces one record per member, in member order, stamped with now.
// Members without an entry in inputs get default scores and no comment.
func (c *Collector) Collect(evaluator model.Participant, members []model.Participant, inputs map[string]Input, now time.Time) ([]model.EvaluationRecord, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyGroup, evaluator.Group)
	}
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m.ID] = struct{}{}
	}
	for id := range inputs {
		if _, ok := known[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMember, id)
		}
	}

	records := make([]model.EvaluationRecord, 0, len(members))
	for _, m := range members {
		in, ok := inputs[m.ID]
		scores := c.pair(c.Defaults())
		if ok && in.Scores != nil {
			if len(in.Scores) != len(c.criteria) {
				return nil, fmt.Errorf("%w: %s has %d, want %d", ErrScoreCount, m.ID, len(in.Scores), len(c.criteria))
			}
			for i, v := range in.Scores {
				scores[i].Value = Clamp(v)
			}
		}
		values := Values(scores)
		records = append(records, model.EvaluationRecord{
			EvaluatorID:   evaluator.ID,
			EvaluatorName: evaluator.Name,
			Group:         evaluator.Group,
			PeerID:        m.ID,
			PeerName:      m.Name,
			Timestamp:     now,
			OverallScore:  Average(values),
			Details:       FormatDetails(values),
			Comment:       strings.TrimSpace(in.Comment),
		})
	}
	return records, nil
}

// Breakdown pairs each criterion with its value from r.Details. Values beyond
// the rubric are dropped.
func (c *Collector) Breakdown(r model.EvaluationRecord) ([]model.CriterionScore, error) {
	values, err := ParseDetails(r.Details)
	if err != nil {
		return nil, err
	}
	if len(values) > len(c.criteria) {
		values = values[:len(c.criteria)]
	}
	return c.pair(values), nil
}

func (c *Collector) pair(values []int) []model.CriterionScore {
	out := make([]model.CriterionScore, len(values))
	for i, v := range values {
		out[i] = model.CriterionScore{Criterion: c.criteria[i], Value: v}
	}
	return out
}

// Values returns the bare scores in rubric order.
func Values(scores []model.CriterionScore) []int {
	out := make([]int, len(scores))
	for i, s := range scores {
		out[i] = s.Value
	}
	return out
}

// Warnings lists low values in records.
func (c *Collector) Warnings(records []model.EvaluationRecord) []Warning {
	var out []Warning
	for _, r := range records {
		scores, err := c.Breakdown(r)
		if err == nil {
			for _, s := range scores {
				if float64(s.Value) < c.lowScore {
					out = append(out, Warning{PeerID: r.PeerID, Criterion: s.Criterion, Value: float64(s.Value)})
				}
			}
		}
		if r.OverallScore < c.lowScore {
			out = append(out, Warning{PeerID: r.PeerID, Value: Round1(r.OverallScore)})
		}
	}
	return out
}

// Clamp bounds v to [MinScore, MaxScore].
func Clamp(v int) int {
	switch {
	case v < MinScore:
		return MinScore
	case v > MaxScore:
		return MaxScore
	default:
		return v
	}
}

// Average is the unweighted mean; zero for no scores.
func Average(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, v := range scores {
		sum += v
	}
	return float64(sum) / float64(len(scores))
}

// Round1 rounds to one decimal place for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatDetails renders scores as "[90, 90, 90, 90, 90]".
func FormatDetails(scores []int) string {
	parts := make([]string, len(scores))
	for i, v := range scores {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, detailsSeparator) + "]"
}

// ParseDetails is the inverse of FormatDetails.
func ParseDetails(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed score list %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []int{}, nil
	}
	fields := strings.Split(body, ",")
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("malformed score list %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
