package tokens

import (
	"strings"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1534, "1.5K"},
		{2_500_000, "2.5M"},
		{7_000_000_000, "7.0B"},
	}
	for _, tc := range tests {
		if got := FormatNumber(tc.in); got != tc.want {
			t.Errorf("FormatNumber(%d): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 tokens for empty text")
	}
	if EstimateTokens("x") != 1 {
		t.Error("expected at least 1 token for non-empty text")
	}
	if got := EstimateTokens(strings.Repeat("word ", 300)); got != 399 {
		t.Errorf("expected 399 tokens for 300 words, got %d", got)
	}
}

func TestExcerpt(t *testing.T) {
	text := strings.Repeat("a", 10) + "hello" + strings.Repeat("b", 10)
	if got := Excerpt(text, 10, 5, "PDF"); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
	if got := Excerpt(text, 20, 100, "PDF"); got != "bbbbb" {
		t.Errorf("expected clipped tail, got %q", got)
	}
	if got := Excerpt("short", 10, 5, "Markdown"); got != "[Markdown too short: only 5 chars]" {
		t.Errorf("unexpected marker %q", got)
	}
}

func TestCounter_FallbackIsUsedWhenEncodingFails(t *testing.T) {
	c := &Counter{}
	c.once.Do(func() { c.loadErr = errTest })

	if c.Exact() {
		t.Error("expected Exact() to be false after a load failure")
	}
	if got := c.Count("one two three"); got != EstimateTokens("one two three") {
		t.Errorf("expected estimate, got %d", got)
	}
}

func TestCompare(t *testing.T) {
	c := &Counter{}
	c.once.Do(func() { c.loadErr = errTest })

	raw := append([]byte("%PDF-1.4 stream "), 0xff, 0xfe)
	raw = append(raw, []byte(strings.Repeat("obj ", 2000))...)
	md := "# Title\n\nShort body."

	cmp := c.Compare(raw, md)
	if cmp.RawTokens <= cmp.MarkdownTokens {
		t.Errorf("expected raw (%d) to cost more than markdown (%d)", cmp.RawTokens, cmp.MarkdownTokens)
	}
	if cmp.Saved() != cmp.RawTokens-cmp.MarkdownTokens {
		t.Error("Saved() disagrees with counts")
	}
	if strings.ContainsRune(cmp.RawExcerpt, '�') {
		t.Error("expected invalid UTF-8 to be dropped")
	}
	if !strings.HasPrefix(cmp.MarkdownExcerpt, "[Markdown too short") {
		t.Errorf("expected too-short marker, got %q", cmp.MarkdownExcerpt)
	}
	out := cmp.String()
	if !strings.Contains(out, "Token count before parsing") || !strings.Contains(out, "estimated") {
		t.Errorf("unexpected rendering: %s", out)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("offline")
