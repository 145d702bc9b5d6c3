// Package repository implements the shared evaluation dataset stores.
package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/peereval/internal/domain/model"
	"github.com/okian/peereval/internal/domain/reconcile"
)

// Column headers, in write order.
const (
	ColEvaluator    = "Evaluator"
	ColEvaluatorID  = "Evaluator ID"
	ColGroup        = "Group"
	ColPeerName     = "Peer Name"
	ColPeerID       = "Peer ID"
	ColTimestamp    = "Timestamp"
	ColOverallScore = "Overall Score"
	ColDetails      = "Details"
	ColComments     = "Comments"
	timestampLayout = "2006-01-02 15:04:05"
)

// Header is the first row of every written dataset.
var Header = []string{
	ColEvaluator, ColEvaluatorID, ColGroup, ColPeerName, ColPeerID,
	ColTimestamp, ColOverallScore, ColDetails, ColComments,
}

// Both implementations satisfy the reconciler's store contract.
var (
	_ reconcile.Store = (*MemoryStore)(nil)
	_ reconcile.Store = (*SheetsStore)(nil)
)

// EncodeRow renders a record as cells in Header order.
func EncodeRow(r model.EvaluationRecord) []any {
	return []any{
		r.EvaluatorName,
		r.EvaluatorID,
		r.Group,
		r.PeerName,
		r.PeerID,
		r.Timestamp.Format(timestampLayout),
		r.OverallScore,
		r.Details,
		r.Comment,
	}
}

// DecodeRows maps a header row plus data rows back to records.
// Columns are located by header name; rows shorter than the header are padded
// and rows with no content are skipped. A row that cannot be decoded fails the
// whole read with ErrMalformedRow.
func DecodeRows(rows [][]string) ([]model.EvaluationRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.TrimSpace(h)] = i
	}
	if _, ok := idx[ColEvaluatorID]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadHeader, ColEvaluatorID)
	}

	out := make([]model.EvaluationRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		get := func(col string) string {
			if i, ok := idx[col]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		rec := model.EvaluationRecord{
			EvaluatorID:   strings.TrimSpace(get(ColEvaluatorID)),
			EvaluatorName: get(ColEvaluator),
			Group:         get(ColGroup),
			PeerID:        strings.TrimSpace(get(ColPeerID)),
			PeerName:      get(ColPeerName),
			Details:       get(ColDetails),
			Comment:       get(ColComments),
		}
		if s := strings.TrimSpace(get(ColOverallScore)); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: overall score %q", ErrMalformedRow, n+2, s)
			}
			rec.OverallScore = v
		}
		if s := strings.TrimSpace(get(ColTimestamp)); s != "" {
			t, err := time.ParseInLocation(timestampLayout, s, time.Local)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: timestamp %q", ErrMalformedRow, n+2, s)
			}
			rec.Timestamp = t
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
