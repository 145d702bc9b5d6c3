package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/okian/peereval/internal/domain/model"
	"github.com/okian/peereval/internal/domain/reconcile"
)

const defaultSheetName = "Sheet1"

// SheetsStore keeps the dataset in one worksheet of a Google spreadsheet.
// Row 1 is the header; every following row is one EvaluationRecord.
//
// Only the columns in Header are kept. Columns added to the worksheet by hand
// are not read, and Overwrite blanks them.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	timeout       time.Duration
}

// NewSheetsStore opens a Sheets client for spreadsheetID.
func NewSheetsStore(ctx context.Context, spreadsheetID string, opts ...Option) (*SheetsStore, error) {
	cfg := sheetsConfig{sheetName: defaultSheetName}
	for _, opt := range opts {
		opt(&cfg)
	}
	if spreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}

	svc, err := sheets.NewService(ctx, cfg.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     cfg.sheetName,
		timeout:       cfg.timeout,
	}, nil
}

// ReadAll fetches the whole worksheet and decodes it by header name.
// Numbers are read unformatted so scores round-trip at full precision.
func (s *SheetsStore) ReadAll(ctx context.Context) ([]model.EvaluationRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	values, err := s.fetch(ctx)
	if err != nil {
		return nil, s.classify("read", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	records, err := DecodeRows(toStrings(values))
	if err != nil {
		return nil, fmt.Errorf("sheets read: %w", err)
	}
	return records, nil
}

// Overwrite replaces the worksheet contents with the header and records in a
// single update. Cells of the previous table that fall outside the new one are
// written as empty strings in the same request, so the worksheet is either
// fully replaced or left as it was. The previous extent is fetched first; a
// failure there also leaves the worksheet untouched.
func (s *SheetsStore) Overwrite(ctx context.Context, records []model.EvaluationRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	previous, err := s.fetch(ctx)
	if err != nil {
		return s.classify("write", err)
	}

	values := make([][]any, 0, len(records)+1)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	values = append(values, header)
	for _, r := range records {
		values = append(values, EncodeRow(r))
	}
	values = pad(values, previous)

	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1"), &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return s.classify("write", err)
	}
	return nil
}

func (s *SheetsStore) fetch(ctx context.Context) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("")).
		MajorDimension("ROWS").
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// pad extends values with empty cells until it covers every cell of previous.
func pad(values, previous [][]any) [][]any {
	width := 0
	for _, row := range values {
		width = max(width, len(row))
	}
	for _, row := range previous {
		width = max(width, len(row))
	}
	for i := range values {
		for len(values[i]) < width {
			values[i] = append(values[i], "")
		}
	}
	for len(values) < len(previous) {
		row := make([]any, width)
		for j := range row {
			row[j] = ""
		}
		values = append(values, row)
	}
	return values
}

func (s *SheetsStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// rangeOf returns an A1 range on the configured worksheet.
func (s *SheetsStore) rangeOf(cells string) string {
	name := "'" + strings.ReplaceAll(s.sheetName, "'", "''") + "'"
	if cells == "" {
		return name
	}
	return name + "!" + cells
}

func (s *SheetsStore) classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		return fmt.Errorf("sheets %s: %w: %w", op, reconcile.ErrStoreUnauthorized, err)
	}
	return fmt.Errorf("sheets %s: %w", op, err)
}

func toStrings(in [][]any) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = make([]string, len(row))
		for j, v := range row {
			switch v := v.(type) {
			case nil:
			case float64:
				out[i][j] = strconv.FormatFloat(v, 'f', -1, 64)
			default:
				out[i][j] = fmt.Sprint(v)
			}
		}
	}
	return out
}
