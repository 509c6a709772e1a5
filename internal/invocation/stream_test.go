package invocation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractLastResultWins(t *testing.T) {
	content := []byte(`{"type":"result","result":"first"}
{"type":"tool_use","name":"grep"}
{"type":"result","result":"second"}
`)
	if got := Extract(content); got != "second" {
		t.Errorf("Extract = %q, want %q", got, "second")
	}
}

func TestExtractSkipsNoiseAndToolEvents(t *testing.T) {
	content := []byte(`
================================================================================
[2026-01-12 10:00:00] GENERATOR_V1
Repo: /tmp/repo
Prompt: what does main do
================================================================================
{"type":"tool_use","name":"read_file"}
{"type":"tool_use","name":"grep"}
not json at all
{"type":"result","result":"Answer text"}

[Completed in 4.20s, exit: 0]
`)
	if got := Extract(content); got != "Answer text" {
		t.Errorf("Extract = %q, want %q", got, "Answer text")
	}
}

func TestExtractMalformedLinesAreSkipped(t *testing.T) {
	content := []byte(`{"type":"result","result":"kept"}
{"type":"result","result":"broken
{truncated`)
	if got := Extract(content); got != "kept" {
		t.Errorf("Extract = %q, want %q", got, "kept")
	}
}

func TestExtractNoResultEvent(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"only noise", "plain text\nmore text\n"},
		{"only tool events", `{"type":"tool_use","name":"grep"}` + "\n"},
		{"result without payload", `{"type":"result"}` + "\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Extract([]byte(tc.content)); got != "" {
				t.Errorf("Extract = %q, want empty", got)
			}
		})
	}
}

func TestExtractIsPure(t *testing.T) {
	content := []byte(`{"type":"result","result":"stable"}`)
	first := Extract(content)
	second := Extract(content)
	if first != second || first != "stable" {
		t.Errorf("Extract not stable: %q then %q", first, second)
	}
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task_claude.log")
	if err := os.WriteFile(path, []byte(`{"type":"result","result":"from file"}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if got := ExtractFile(path); got != "from file" {
		t.Errorf("ExtractFile = %q", got)
	}
	if got := ExtractFile(filepath.Join(dir, "missing.log")); got != "" {
		t.Errorf("ExtractFile(missing) = %q, want empty", got)
	}
}
