package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_Rows(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "STEP", "INTENT", "STATUS")
	tbl.Row("1", "interface.enable", "ok")
	tbl.Row("2", "interface.set_ipv4", "failed")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "STEP") || !strings.Contains(lines[0], "INTENT") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "----") {
		t.Errorf("divider line = %q", lines[1])
	}
	// Columns are aligned: INTENT starts at the same offset on every line.
	col := strings.Index(lines[0], "INTENT")
	if strings.Index(lines[2], "interface.enable") != col || strings.Index(lines[3], "interface.set_ipv4") != col {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestTable_EmptyPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "A", "B")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table wrote %q", buf.String())
	}
}

func TestTable_Prefix(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "FIELD", "VALUE").WithPrefix("  ")
	tbl.Row("mtu", "9100")
	tbl.Flush()

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %q missing prefix", line)
		}
	}
}
