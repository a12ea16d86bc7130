// Package sheets persists appointment records to a Google spreadsheet. The
// sheet is an append-only row log; the only in-place mutation is the
// reminded-status cells.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"vaxline/internal/config"
	"vaxline/internal/models"
)

const (
	maxAttempts = 4
	retryBase   = 500 * time.Millisecond
)

// Row is a persisted record together with its 1-based sheet row number,
// which is the handle MarkReminded needs.
type Row struct {
	Index  int
	Record models.AppointmentRecord
}

// Store implements the record store over the Sheets v4 values API.
type Store struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string
	sheetName     string
	log           zerolog.Logger
}

// New builds a Store from a service-account credentials file.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	jwt, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithTokenSource(jwt.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetRange, log), nil
}

// NewWithService wires a Store onto an existing client. Tests use this with
// an httptest-backed service.
func NewWithService(svc *sheets.Service, spreadsheetID, readRange string, log zerolog.Logger) *Store {
	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		sheetName:     sheetNameOf(readRange),
		log:           log,
	}
}

// Append durably writes one record as a new row and returns its sheet row
// number. Transient API faults are retried with capped backoff before the
// error surfaces.
func (s *Store) Append(ctx context.Context, rec models.AppointmentRecord) (int, error) {
	body := &sheets.ValueRange{Values: [][]interface{}{rec.ToRow()}}

	var updated string
	err := s.withRetry(ctx, "append", func() error {
		resp, err := s.svc.Spreadsheets.Values.
			Append(s.spreadsheetID, s.readRange, body).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if resp.Updates != nil {
			updated = resp.Updates.UpdatedRange
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	row, err := rowOfRange(updated)
	if err != nil {
		return 0, &StoreError{Op: "append", Retryable: false, err: err}
	}
	s.log.Debug().Int("row", row).Str("submission_id", rec.SubmissionID).Msg("record appended")
	return row, nil
}

// QueryByUser full-scans the configured range and returns the user's rows in
// append order, most recent last.
func (s *Store) QueryByUser(ctx context.Context, userID string) ([]Row, error) {
	rows, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	var matched []Row
	for _, r := range rows {
		if r.Record.UserID == userID {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// FindBySubmission returns the row carrying the given submission ID, or
// ErrNotFound.
func (s *Store) FindBySubmission(ctx context.Context, submissionID string) (Row, error) {
	rows, err := s.all(ctx)
	if err != nil {
		return Row{}, err
	}
	for _, r := range rows {
		if r.Record.SubmissionID == submissionID {
			return r, nil
		}
	}
	return Row{}, ErrNotFound
}

// All returns every row in the range. The catch-up sweep scans with this.
func (s *Store) All(ctx context.Context) ([]Row, error) {
	return s.all(ctx)
}

// MarkReminded writes the reminded marker into the dose's status cell.
// Rewriting an already-marked cell is a no-op, so at-least-once callers are
// safe.
func (s *Store) MarkReminded(ctx context.Context, rowIndex int, dose models.Dose) error {
	cellRange := fmt.Sprintf("%s!%s%d", s.sheetName, columnLetter(dose.StatusColumn()), rowIndex)
	body := &sheets.ValueRange{Values: [][]interface{}{{models.RemindedValue}}}

	err := s.withRetry(ctx, "mark reminded", func() error {
		_, err := s.svc.Spreadsheets.Values.
			Update(s.spreadsheetID, cellRange, body).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return err
	}
	s.log.Debug().Int("row", rowIndex).Str("dose", dose.String()).Msg("reminded flag set")
	return nil
}

func (s *Store) all(ctx context.Context) ([]Row, error) {
	var resp *sheets.ValueRange
	err := s.withRetry(ctx, "query", func() error {
		var err error
		resp, err = s.svc.Spreadsheets.Values.
			Get(s.spreadsheetID, s.readRange).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(resp.Values))
	for i, raw := range resp.Values {
		rows = append(rows, Row{Index: i + 1, Record: models.RecordFromRow(raw)})
	}
	return rows, nil
}

// withRetry runs call, retrying transient faults with capped exponential
// backoff. Permanent faults and context cancellation return immediately.
func (s *Store) withRetry(ctx context.Context, op string, call func() error) error {
	delay := retryBase
	var err error
	for attempt := 1; ; attempt++ {
		err = classify(op, call())
		if err == nil || !IsRetryable(err) || attempt == maxAttempts {
			return err
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("transient store fault, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
}

// sheetNameOf extracts the sheet name from an A1 range ("Sheet1!A:K").
func sheetNameOf(a1 string) string {
	if i := strings.IndexByte(a1, '!'); i >= 0 {
		return a1[:i]
	}
	return a1
}

// rowOfRange pulls the row number out of an updated range like
// "Sheet1!A5:K5".
func rowOfRange(a1 string) (int, error) {
	if i := strings.IndexByte(a1, '!'); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.IndexByte(a1, ':'); i >= 0 {
		a1 = a1[:i]
	}
	digits := strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return 0, fmt.Errorf("unparseable updated range %q", a1)
	}
	return row, nil
}

func columnLetter(index int) string {
	return string(rune('A' + index))
}
