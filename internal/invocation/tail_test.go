package invocation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadCompleteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sink.log")

	lines, offset, err := ReadCompleteLines(path, 0)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("Missing file should be quiet: %v %v %d", lines, err, offset)
	}

	if err := os.WriteFile(path, []byte("one\ntwo\npart"), 0o644); err != nil {
		t.Fatal(err)
	}
	lines, offset, err = ReadCompleteLines(path, 0)
	if err != nil {
		t.Fatalf("ReadCompleteLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("lines = %v", lines)
	}

	// Completing the partial line makes it visible from the new offset.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("ial\n"); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	lines, _, err = ReadCompleteLines(path, offset)
	if err != nil {
		t.Fatalf("ReadCompleteLines: %v", err)
	}
	if len(lines) != 1 || lines[0] != "partial" {
		t.Fatalf("lines = %v", lines)
	}
}

func TestReadCompleteLinesSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sink.log")
	if err := os.WriteFile(path, []byte("a\n\n  \nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lines, offset, err := ReadCompleteLines(path, 0)
	if err != nil {
		t.Fatalf("ReadCompleteLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Fatalf("lines = %v", lines)
	}
	if offset != 8 {
		t.Errorf("offset = %d, want 8", offset)
	}
}
