package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hurttlocker/questlog/internal/ingest"
)

func TestResolveSessionContext(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		heading   string
		wantNum   int
		wantHas   bool
		wantTitle string
	}{
		{"filename wins", "session_summary_5.md", "Session 3: The Yawning Portal", 5, true, "The Yawning Portal"},
		{"filename dash", "notes/Session-10.md", "Into the Sewers", 10, true, "Into the Sewers"},
		{"heading session", "notes.md", "Session 12 - The Heist", 12, true, "The Heist"},
		{"heading ordinal", "", "7. Into the Dark", 7, true, "Into the Dark"},
		{"heading any number", "", "The 3 Goblins", 3, true, "The 3 Goblins"},
		{"no number", "notes.md", "The Beginning", 0, false, "The Beginning"},
		{"bare prefix keeps heading", "", "Session 4", 4, true, "Session 4"},
		{"ordinal word kept", "session_4.md", "1st Day in Neverwinter", 4, true, "1st Day in Neverwinter"},
		{"session ordinal kept", "", "Session 2nd Attempt", 0, false, "Session 2nd Attempt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headings := []ingest.Heading{{Level: 1, Text: tt.heading}}
			sc := resolveSessionContext(tt.filename, headings)
			if sc.SessionNumber != tt.wantNum || sc.HasNumber != tt.wantHas {
				t.Errorf("session = (%d, %v), want (%d, %v)", sc.SessionNumber, sc.HasNumber, tt.wantNum, tt.wantHas)
			}
			if sc.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", sc.Title, tt.wantTitle)
			}
		})
	}
}

func TestResolveSessionContext_IgnoresSubheadings(t *testing.T) {
	headings := []ingest.Heading{
		{Level: 2, Text: "Session 9"},
		{Level: 1, Text: "The Long Road"},
	}
	sc := resolveSessionContext("", headings)
	if sc.HasNumber {
		t.Errorf("level-2 headings should not supply a session number, got %d", sc.SessionNumber)
	}
	if sc.Heading != "The Long Road" {
		t.Errorf("heading = %q", sc.Heading)
	}
}

func TestSplitSections(t *testing.T) {
	text := "Session 1\n\nIntro line.\n\nSummary\n\nThey won.\nBarely."
	headings := []ingest.Heading{
		{Level: 1, Text: "Session 1"},
		{Level: 2, Text: "Summary"},
	}
	sections := splitSections(text, headings)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].body != "Intro line." {
		t.Errorf("section 0 body = %q", sections[0].body)
	}
	if sections[1].body != "They won.\nBarely." {
		t.Errorf("section 1 body = %q", sections[1].body)
	}
	for i, s := range sections {
		if got := text[s.offset : s.offset+len(s.body)]; got != s.body {
			t.Errorf("section %d offset %d points at %q", i, s.offset, got)
		}
	}
}

func TestHeadingMatches(t *testing.T) {
	if !headingMatches("Session Summary", []string{"summary"}) {
		t.Error("expected word match")
	}
	if !headingMatches("**Persons of Interest**", []string{"persons of interest"}) {
		t.Error("expected phrase match through formatting")
	}
	if headingMatches("Summarized Notes", []string{"summary"}) {
		t.Error("partial words should not match")
	}
}

func TestBriefSynopsis(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		full := "The party met Durnan."
		if got := briefSynopsis(full, 100, 500); got != full {
			t.Errorf("got %q", got)
		}
	})

	t.Run("prefers sentence end", func(t *testing.T) {
		first := strings.Repeat("word ", 23) + "end."
		full := first + " " + strings.Repeat("more ", 120)
		got := briefSynopsis(full, 100, 500)
		if got != first {
			t.Errorf("got %q, want first sentence", got)
		}
	})

	t.Run("falls back to word boundary", func(t *testing.T) {
		full := strings.Repeat("word ", 200)
		got := briefSynopsis(full, 100, 500)
		if utf8.RuneCountInString(got) > 500 {
			t.Errorf("length %d exceeds max", utf8.RuneCountInString(got))
		}
		if !strings.HasPrefix(full, got) || strings.HasSuffix(got, " ") {
			t.Errorf("got %q, want a word-aligned prefix", got)
		}
	})

	t.Run("counts runes", func(t *testing.T) {
		full := strings.Repeat("é", 600)
		got := briefSynopsis(full, 100, 500)
		if utf8.RuneCountInString(got) != 500 || !utf8.ValidString(got) {
			t.Errorf("got %d runes", utf8.RuneCountInString(got))
		}
	})
}

func TestSessionStatus(t *testing.T) {
	e := NewExtractor()

	complete := []section{{heading: ingest.Heading{Level: 2, Text: "Recap"}, body: "It went well."}}
	if got := e.sessionStatus(complete); got != "complete" {
		t.Errorf("status = %q, want complete", got)
	}

	empty := []section{{heading: ingest.Heading{Level: 2, Text: "Recap"}, body: ""}}
	if got := e.sessionStatus(empty); got != "draft" {
		t.Errorf("empty marker section: status = %q, want draft", got)
	}

	custom := NewExtractor(WithConfig(Config{CompletionMarkers: []string{"debrief"}}))
	debrief := []section{{heading: ingest.Heading{Level: 2, Text: "Debrief"}, body: "Done."}}
	if got := custom.sessionStatus(debrief); got != "complete" {
		t.Errorf("custom marker: status = %q, want complete", got)
	}
}
