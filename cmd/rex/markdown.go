package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// markdownRenderer styles answers for the terminal. Any rendering failure
// falls back to the raw text so formatting can never lose an answer.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer() (*markdownRenderer, error) {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w - 4
		if width > 120 {
			width = 120
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}

	return &markdownRenderer{renderer: renderer}, nil
}

func (mr *markdownRenderer) renderIfMarkdown(content string) string {
	if !looksLikeMarkdown(content) {
		return content
	}
	rendered, err := mr.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// looksLikeMarkdown gates rendering: short or plain prose prints as-is.
func looksLikeMarkdown(content string) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < 10 {
		return false
	}

	indicators := []string{"# ", "## ", "### ", "```", "- ", "* ", "1. ", "]("}
	for _, indicator := range indicators {
		if strings.Contains(trimmed, indicator) {
			return true
		}
	}

	if strings.Count(trimmed, "**") >= 2 {
		return true
	}
	if strings.Count(trimmed, "`") >= 2 {
		return true
	}
	return false
}
