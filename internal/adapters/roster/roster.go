// Package roster loads the participant list from a CSV export.
package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/peereval/internal/domain/model"
)

var validate = validator.New()

type row struct {
	ID    string `validate:"required"`
	Name  string `validate:"required"`
	Group string `validate:"required"`
	Email string `validate:"required,email"`
}

type loader struct {
	cols Columns
}

// Roster is an immutable, indexed participant list.
type Roster struct {
	participants []model.Participant
	byID         map[string]int
}

// LoadFile reads the roster at path. Every failure wraps ErrRosterUnavailable.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
	}
	defer f.Close()
	return Load(ctx, f, opts...)
}

// Load parses a roster from r.
func Load(_ context.Context, r io.Reader, opts ...Option) (*Roster, error) {
	l := &loader{cols: DefaultColumns}
	for _, opt := range opts {
		opt(l)
	}
	ps, err := l.parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
	}
	return New(ps)
}

// New indexes participants. Ids must be unique.
func New(ps []model.Participant) (*Roster, error) {
	ro := &Roster{
		participants: append([]model.Participant(nil), ps...),
		byID:         make(map[string]int, len(ps)),
	}
	for i, p := range ro.participants {
		if _, dup := ro.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: %w: %s", ErrRosterUnavailable, ErrDuplicateID, p.ID)
		}
		ro.byID[p.ID] = i
	}
	return ro, nil
}

func (l *loader) parse(r io.Reader) ([]model.Participant, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty roster file")
		}
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	col := func(name string) (int, error) {
		i, ok := idx[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		return i, nil
	}
	var (
		iID, iName, iGroup, iEmail int
		errs                       []error
	)
	iID, err = col(l.cols.ID)
	errs = append(errs, err)
	iName, err = col(l.cols.Name)
	errs = append(errs, err)
	iGroup, err = col(l.cols.Group)
	errs = append(errs, err)
	iEmail, err = col(l.cols.Email)
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var out []model.Participant
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(rec) {
			continue
		}
		cell := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		rw := row{ID: cell(iID), Name: cell(iName), Group: cell(iGroup), Email: cell(iEmail)}
		if err := validate.Struct(rw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, model.Participant(rw))
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Len returns the number of participants.
func (r *Roster) Len() int { return len(r.participants) }

// Participants returns every participant in file order.
func (r *Roster) Participants() []model.Participant {
	return append([]model.Participant(nil), r.participants...)
}

// Lookup finds a participant by id.
func (r *Roster) Lookup(id string) (model.Participant, error) {
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return model.Participant{}, fmt.Errorf("%w: %q", ErrUnknownParticipant, id)
	}
	return r.participants[i], nil
}

// FindByName returns the first participant with the given display name.
func (r *Roster) FindByName(name string) (model.Participant, error) {
	name = strings.TrimSpace(name)
	if name != "" {
		for _, p := range r.participants {
			if p.Name == name {
				return p, nil
			}
		}
	}
	return model.Participant{}, fmt.Errorf("%w: %q", ErrUnknownParticipant, name)
}

// Names returns the distinct display names, sorted.
func (r *Roster) Names() []string {
	seen := make(map[string]struct{}, len(r.participants))
	names := make([]string, 0, len(r.participants))
	for _, p := range r.participants {
		if _, ok := seen[p.Name]; ok {
			continue
		}
		seen[p.Name] = struct{}{}
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Group returns the members of group in file order.
func (r *Roster) Group(group string) []model.Participant {
	var out []model.Participant
	for _, p := range r.participants {
		if p.Group == group {
			out = append(out, p)
		}
	}
	return out
}

// Groups returns the distinct group identifiers, sorted.
func (r *Roster) Groups() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range r.participants {
		if _, ok := seen[p.Group]; !ok {
			seen[p.Group] = struct{}{}
			out = append(out, p.Group)
		}
	}
	sort.Strings(out)
	return out
}
