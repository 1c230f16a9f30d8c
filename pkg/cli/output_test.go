package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

func sampleRecords() []study.Record {
	return []study.Record{
		{ID: "S1", Name: "Ana Perez", StudyDateRaw: "20240115", Modality: "CT", Sex: "Feminine", SizeBytes: 52428800},
		{ID: "S2", Name: "Luis Gomez", StudyDateRaw: "bad", Modality: "MRI", Sex: "Masculine", SizeBytes: 512},
	}
}

type recordList []study.Record

func (l recordList) WriteTable(w io.Writer) error { return WriteRecordTable(w, l) }

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(sampleRecords(), OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[0]["id"] != "S1" {
		t.Errorf("got %v", got)
	}
}

func TestOutputYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(map[string]int{"records": 3}, OutputOptions{Format: FormatYAML, Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !strings.Contains(buf.String(), "records: 3") {
		t.Errorf("yaml = %q", buf.String())
	}
}

func TestOutputTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(recordList(sampleRecords()), OutputOptions{Format: FormatTable, Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "#") || !strings.Contains(lines[1], "15/01/2024") ||
		!strings.Contains(lines[2], "invalid date") || !strings.Contains(lines[1], "50.00 MB") {
		t.Errorf("table =\n%s", buf.String())
	}
}

func TestOutputTableFallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(map[string]string{"status": "in-sync"}, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !strings.Contains(buf.String(), "status: in-sync") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatTable, "json": FormatJSON, "yaml": FormatYAML, "table": FormatTable} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("ParseOutputFormat(xml) should fail")
	}
}

func TestCardAndHeader(t *testing.T) {
	s := NewStyles(DefaultTheme)
	card := s.Card(sampleRecords()[0])
	for _, want := range []string{"S1", "Ana Perez", "15/01/2024", "CT", "Feminine", "52428800 bytes (50.00 MB)"} {
		if !strings.Contains(card, want) {
			t.Errorf("card missing %q:\n%s", want, card)
		}
	}

	long := sampleRecords()[0]
	long.Name = strings.Repeat("x", 80)
	if strings.Contains(s.Card(long), long.Name) {
		t.Error("long names should be truncated")
	}

	header := s.Header(2, 3*1024*1024, "degraded")
	if !strings.Contains(header, "2 records") || !strings.Contains(header, "3.00 MB") || !strings.Contains(header, "degraded") {
		t.Errorf("header = %q", header)
	}
}
