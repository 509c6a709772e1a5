package diff

import "testing"

func TestLineStatsIdentical(t *testing.T) {
	s := LineStats("same\ntext\n", "same\ntext\n")
	if s.Changed() {
		t.Errorf("identical texts reported changed: %+v", s)
	}
}

func TestLineStatsAdditionsAndDeletions(t *testing.T) {
	oldText := "line one\nline two\nline three\n"
	newText := "line one\nline two changed\nline three\nline four\n"

	s := LineStats(oldText, newText)
	if !s.Changed() {
		t.Fatal("expected changes")
	}
	// "line two" replaced (1 del, 1 add) plus "line four" added.
	if s.AddedLines != 2 {
		t.Errorf("AddedLines = %d, want 2", s.AddedLines)
	}
	if s.DeletedLines != 1 {
		t.Errorf("DeletedLines = %d, want 1", s.DeletedLines)
	}
}

func TestLineStatsFromEmpty(t *testing.T) {
	s := LineStats("", "first answer\nwith two lines")
	if s.AddedLines != 2 || s.DeletedLines != 0 {
		t.Errorf("LineStats from empty = %+v, want 2 added", s)
	}
}

func TestCountLines(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one line", 1},
		{"one line\n", 1},
		{"a\nb\n", 2},
		{"a\nb", 2},
	}
	for _, tc := range cases {
		if got := countLines(tc.text); got != tc.want {
			t.Errorf("countLines(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}
