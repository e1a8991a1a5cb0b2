package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestColorizeDiff(t *testing.T) {
	if !colorEnabled {
		t.Skip("NO_COLOR set in environment")
	}

	diff := "+vlan 10\n-vlan 20\n context line"
	out := ColorizeDiff(diff)

	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], "\033[32m") {
		t.Errorf("addition not green: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "\033[31m") {
		t.Errorf("removal not red: %q", lines[1])
	}
	if lines[2] != " context line" {
		t.Errorf("context line changed: %q", lines[2])
	}
}

func TestColorizeDiff_Empty(t *testing.T) {
	if got := ColorizeDiff(""); got != "" {
		t.Errorf("ColorizeDiff(\"\") = %q", got)
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "DEVICE", "STATUS")

	tbl.Row("leaf1-ny", "committed")
	tbl.Row("leaf2-ny", "failed")
	tbl.Flush()

	out := buf.String()
	if !strings.Contains(out, "DEVICE") || !strings.Contains(out, "------") {
		t.Errorf("missing headers/divider:\n%s", out)
	}
	if !strings.Contains(out, "leaf1-ny") || !strings.Contains(out, "failed") {
		t.Errorf("missing rows:\n%s", out)
	}
}

func TestTable_EmptyProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable(&buf, "DEVICE", "STATUS")
	tbl.Flush()

	if buf.Len() != 0 {
		t.Errorf("empty table produced output: %q", buf.String())
	}
}
