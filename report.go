package contactkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNoRecords is returned by DecodeRecords for input that holds neither a
// JSON array nor a {"projects": [...]} object.
var ErrNoRecords = errors.New("contactkit: input must be a JSON array or an object with a \"projects\" array")

// DecodeRecords reads records from r. The input is either a JSON array of
// objects or an object whose "projects" key holds that array.
func DecodeRecords(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("contactkit: read records: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoRecords
	}

	var recs []Record
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("contactkit: decode records: %w", err)
		}
	case '{':
		var wrapped struct {
			Projects *[]Record `json:"projects"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("contactkit: decode records: %w", err)
		}
		if wrapped.Projects == nil {
			return nil, ErrNoRecords
		}
		recs = *wrapped.Projects
	default:
		return nil, ErrNoRecords
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// Report is the document written for a verified batch.
type Report struct {
	RunID      string          `json:"run_id,omitempty"`
	VerifiedAt time.Time       `json:"verified_at"`
	Level      Level           `json:"level"`
	Total      int             `json:"total"`
	Valid      int             `json:"valid"`
	Partial    int             `json:"partial"`
	Invalid    int             `json:"invalid"`
	Unknown    int             `json:"unknown"`
	Results    []ProjectResult `json:"results"`
	// Kept holds the records that passed the filter policy when filtering
	// was requested.
	Kept []Record `json:"kept,omitempty"`
}

// NewReport summarizes results.
func NewReport(level Level, results []ProjectResult, verifiedAt time.Time) Report {
	s := Summarize(results)
	if results == nil {
		results = []ProjectResult{}
	}
	return Report{
		VerifiedAt: verifiedAt,
		Level:      level,
		Total:      s.Total,
		Valid:      s.Valid,
		Partial:    s.Partial,
		Invalid:    s.Invalid,
		Unknown:    s.Unknown,
		Results:    results,
	}
}
