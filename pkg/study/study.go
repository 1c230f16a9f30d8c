// Package study defines the medical-study record and the pure helpers
// around it: display-date derivation, sex-code normalization, default
// size synthesis, and the pipe-delimited durable value codec.
package study

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates fields in both the ingestion line format and the
// durable value encoding.
const Delimiter = "|"

// Normalized sex values.
const (
	SexMasculine = "Masculine"
	SexFeminine  = "Feminine"
	SexOther     = "Other"
)

// ErrInvalidRecord is returned by Validate.
var ErrInvalidRecord = errors.New("study: invalid record")

// Record is one patient study. The display date is derived from
// StudyDateRaw on every call and is never stored.
type Record struct {
	ID           string `json:"id" yaml:"id" msgpack:"id"`
	Name         string `json:"name" yaml:"name" msgpack:"name"`
	StudyDateRaw string `json:"study_date" yaml:"study_date" msgpack:"study_date"`
	Modality     string `json:"modality" yaml:"modality" msgpack:"modality"`
	Sex          string `json:"sex" yaml:"sex" msgpack:"sex"`
	SizeBytes    int64  `json:"size_bytes" yaml:"size_bytes" msgpack:"size_bytes"`
}

// StudyDateDisplay returns the study date as DD/MM/YYYY, or InvalidDate.
func (r Record) StudyDateDisplay() string {
	return FormatStudyDate(r.StudyDateRaw)
}

// SetStudyDate replaces the raw study date.
func (r *Record) SetStudyDate(raw string) {
	r.StudyDateRaw = raw
}

// Validate checks the rules a record must satisfy before insertion.
func (r Record) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	case strings.Contains(r.ID, Delimiter):
		return fmt.Errorf("%w: id %q contains %q", ErrInvalidRecord, r.ID, Delimiter)
	case r.SizeBytes < 0:
		return fmt.Errorf("%w: negative size %d", ErrInvalidRecord, r.SizeBytes)
	}
	for _, f := range []string{r.Name, r.StudyDateRaw, r.Modality, r.Sex} {
		if strings.Contains(f, Delimiter) {
			return fmt.Errorf("%w: field %q contains %q", ErrInvalidRecord, f, Delimiter)
		}
	}
	return nil
}

// NormalizeSex maps the single-letter codes M, F and O to their display
// words. Any other input is returned unchanged.
func NormalizeSex(code string) string {
	switch code {
	case "M":
		return SexMasculine
	case "F":
		return SexFeminine
	case "O":
		return SexOther
	default:
		return code
	}
}
