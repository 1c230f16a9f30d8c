package study

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedValue is returned by Decode for a value that does not have
// the five durable fields.
var ErrMalformedValue = errors.New("study: malformed durable value")

// Field selects a secondary attribute for searching.
type Field int

// Searchable fields. The numeric value is the field's position in the
// durable value encoding.
const (
	FieldName     Field = 0
	FieldModality Field = 2
	FieldSex      Field = 3
)

// DurableFields is the number of fields in an encoded value.
const DurableFields = 5

func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldModality:
		return "modality"
	case FieldSex:
		return "sex"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Of returns the value of field f on r.
func (f Field) Of(r Record) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldModality:
		return r.Modality
	case FieldSex:
		return r.Sex
	default:
		return ""
	}
}

// ParseField maps "name", "modality" and "sex" to their Field.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(s) {
	case "name":
		return FieldName, nil
	case "modality":
		return FieldModality, nil
	case "sex":
		return FieldSex, nil
	default:
		return 0, fmt.Errorf("study: unknown search field %q", s)
	}
}

// Encode renders the durable value Name|StudyDateRaw|Modality|Sex|SizeBytes.
// The id is the key and is not part of the value.
func Encode(r Record) []byte {
	var b strings.Builder
	b.WriteString(r.Name)
	b.WriteString(Delimiter)
	b.WriteString(r.StudyDateRaw)
	b.WriteString(Delimiter)
	b.WriteString(r.Modality)
	b.WriteString(Delimiter)
	b.WriteString(r.Sex)
	b.WriteString(Delimiter)
	b.WriteString(strconv.FormatInt(r.SizeBytes, 10))
	return []byte(b.String())
}

// SplitValue splits an encoded value into its positional fields without
// validating the count.
func SplitValue(value []byte) []string {
	return strings.Split(string(value), Delimiter)
}

// Decode parses an encoded value stored under id.
func Decode(id string, value []byte) (Record, error) {
	fields := SplitValue(value)
	if len(fields) != DurableFields {
		return Record{}, fmt.Errorf("%w: %q has %d fields", ErrMalformedValue, id, len(fields))
	}
	size, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %q size: %v", ErrMalformedValue, id, err)
	}
	return Record{
		ID:           id,
		Name:         fields[0],
		StudyDateRaw: fields[1],
		Modality:     fields[2],
		Sex:          fields[3],
		SizeBytes:    size,
	}, nil
}
