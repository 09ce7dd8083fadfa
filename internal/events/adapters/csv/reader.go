package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"funnel-service/internal/events/core/domain"
	funnel "funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/ports"
)

const fieldsPerRecord = 3 // user_id,event_name,timestamp

// ReadIndex builds an index from headerless user_id,event_name,timestamp rows.
// Rows are appended in file order. The first bad row aborts the read.
func ReadIndex(ctx context.Context, r io.Reader, source string) (*funnel.EventIndex, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	b := funnel.NewIndexBuilder()
	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &domain.MalformedRecordError{Source: source, Line: pe.Line, Reason: pe.Err.Error()}
			}
			return nil, fmt.Errorf("read %s: %w", source, err)
		}

		line, _ := cr.FieldPos(0)
		user, event, ts, err := parseRecord(rec)
		if err != nil {
			return nil, &domain.MalformedRecordError{Source: source, Line: line, Reason: err.Error()}
		}
		b.Add(user, event, ts)
	}

	return b.Build(), nil
}

func parseRecord(rec []string) (funnel.UserID, string, int64, error) {
	if len(rec) != fieldsPerRecord {
		return 0, "", 0, fmt.Errorf("expected %d fields, got %d", fieldsPerRecord, len(rec))
	}

	user, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return 0, "", 0, fmt.Errorf("user_id %q is not an integer", rec[0])
	}
	if rec[1] == "" {
		return 0, "", 0, errors.New("empty event name")
	}
	ts, err := strconv.ParseInt(rec[2], 10, 64)
	if err != nil {
		return 0, "", 0, fmt.Errorf("timestamp %q is not an integer", rec[2])
	}

	return funnel.UserID(user), rec[1], ts, nil
}

// FileSource loads the index from a CSV file on local disk.
type FileSource struct {
	Path string
}

var _ ports.IndexSource = FileSource{}

func (s FileSource) LoadIndex(ctx context.Context) (*funnel.EventIndex, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	return ReadIndex(ctx, f, s.Path)
}
