package tokens

import "testing"

func TestCount_Empty(t *testing.T) {
	if got := Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}
}

func TestCount_Simple(t *testing.T) {
	got := Count("hello world")
	if got <= 0 {
		t.Errorf("Count(\"hello world\") = %d, want > 0", got)
	}
	// "hello world" is 2 tokens with cl100k_base
	if loadEncoding() != nil && got != 2 {
		t.Errorf("Count(\"hello world\") = %d, want 2 (tiktoken)", got)
	}
}

func TestEstimate_Whitespace(t *testing.T) {
	if got := Estimate("   \n\t  "); got != 0 {
		t.Errorf("Estimate(whitespace) = %d, want 0", got)
	}
}

func TestEstimate_MinWordCount(t *testing.T) {
	// "a b c d" has 4 words and 7 runes; the word count dominates.
	if got := Estimate("a b c d"); got != 4 {
		t.Errorf("Estimate(\"a b c d\") = %d, want 4", got)
	}
}

func TestEstimate_LongRun(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz abcdefghijklmnopqrstuvwxyz"
	// 53 runes / 4 = 13 beats the 2-word count.
	if got := Estimate(text); got != 13 {
		t.Errorf("Estimate(long) = %d, want 13", got)
	}
}
