// Package diff summarizes how a regenerated answer differs from its
// predecessor so the audit trail can show whether feedback actually moved
// the text.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Stats counts line-level changes between two answer revisions.
type Stats struct {
	AddedLines   int
	DeletedLines int
}

// Changed reports whether the revision differs at all.
func (s Stats) Changed() bool {
	return s.AddedLines > 0 || s.DeletedLines > 0
}

// LineStats diffs two texts line-wise. Identical inputs short-circuit to a
// zero value.
func LineStats(oldText, newText string) Stats {
	if oldText == newText {
		return Stats{}
	}

	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	var stats Stats
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			stats.AddedLines += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			stats.DeletedLines += countLines(d.Text)
		}
	}
	return stats
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
