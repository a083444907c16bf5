package extract

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/hurttlocker/questlog/internal/ingest"
)

// SessionContext is what the resolver knows about the session a document
// describes.
type SessionContext struct {
	SessionNumber int
	HasNumber     bool
	Heading       string // first level-1 heading, "" when absent
	Title         string // Heading with any leading "Session N:" / "N." prefix removed
}

var (
	// session_summary_5.md, session_10.md, Session-3 notes.md
	filenameSessionRE = regexp.MustCompile(`(?i)session[ _-]?(?:summary[ _-]?)?(\d+)`)
	headingSessionRE  = regexp.MustCompile(`(?i)\bsession\s*#?\s*(\d+)\b`)
	headingOrdinalRE  = regexp.MustCompile(`^\s*#?(\d+)\b`)
	anyNumberRE       = regexp.MustCompile(`\b(\d+)\b`)

	// "Session 1: ", "Session #2 - ", "1. ", "3) "
	headingPrefixRE = regexp.MustCompile(`(?i)^\s*(?:session\s*#?\s*\d+\b|#?\d+\b)\s*[:.)\-–—]*\s*`)
)

// resolveSessionContext derives the session number from the filename first,
// then from the first level-1 heading.
func resolveSessionContext(filename string, headings []ingest.Heading) SessionContext {
	var sc SessionContext
	for _, h := range headings {
		if h.Level == 1 {
			sc.Heading = strings.TrimSpace(h.Text)
			break
		}
	}

	if n, ok := sessionNumberFromFilename(filename); ok {
		sc.SessionNumber, sc.HasNumber = n, true
	} else if n, ok := sessionNumberFromHeading(sc.Heading); ok {
		sc.SessionNumber, sc.HasNumber = n, true
	}

	if sc.Heading != "" {
		sc.Title = strings.TrimSpace(headingPrefixRE.ReplaceAllString(sc.Heading, ""))
		if sc.Title == "" {
			sc.Title = sc.Heading
		}
	}
	return sc
}

func sessionNumberFromFilename(filename string) (int, bool) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == "" {
		return 0, false
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if m := filenameSessionRE.FindStringSubmatch(base); m != nil {
		return atoiOK(m[1])
	}
	return 0, false
}

func sessionNumberFromHeading(heading string) (int, bool) {
	if heading == "" {
		return 0, false
	}
	for _, re := range []*regexp.Regexp{headingSessionRE, headingOrdinalRE, anyNumberRE} {
		if m := re.FindStringSubmatch(heading); m != nil {
			return atoiOK(m[1])
		}
	}
	return 0, false
}

func atoiOK(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// section is a heading plus the text lines up to the next heading.
type section struct {
	heading   ingest.Heading
	body      string
	offset    int // byte offset of body within the document text
	lineStart int // heading line span within the document text
	lineEnd   int
}

// splitSections walks the plain text and pairs each heading with its body.
// Headings are matched in document order against whole lines.
func splitSections(text string, headings []ingest.Heading) []section {
	var sections []section
	next := 0
	offset := 0
	var current *section
	var body []string

	flush := func() {
		if current != nil {
			raw := strings.Join(body, "\n")
			trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
			current.offset += len(raw) - len(trimmed)
			current.body = strings.TrimRightFunc(trimmed, unicode.IsSpace)
			sections = append(sections, *current)
		}
		body = nil
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if next < len(headings) && trimmed != "" && trimmed == strings.TrimSpace(headings[next].Text) {
			flush()
			current = &section{
				heading:   headings[next],
				offset:    offset + len(line),
				lineStart: offset,
				lineEnd:   offset + len(strings.TrimRight(line, "\n")),
			}
			next++
		} else if current != nil {
			body = append(body, strings.TrimRight(line, "\n"))
		}
		offset += len(line)
	}
	flush()
	return sections
}

// headingBounds lists the start and end of every heading line in offset
// order.
func headingBounds(sections []section) []int {
	bounds := make([]int, 0, 2*len(sections))
	for _, s := range sections {
		bounds = append(bounds, s.lineStart, s.lineEnd)
	}
	return bounds
}

// headingMatches reports whether a heading contains any marker as a whole
// word or phrase.
func headingMatches(heading string, markers []string) bool {
	lower := " " + strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, heading)) + " "
	lower = " " + strings.Join(strings.Fields(lower), " ") + " "
	for _, m := range markers {
		if strings.Contains(lower, " "+strings.ToLower(m)+" ") {
			return true
		}
	}
	return false
}

// buildSessionSummary produces the SessionSummary entity. It requires both a
// level-1 heading and a resolved session number.
func (e *Extractor) buildSessionSummary(sc SessionContext, text string, sections []section) *SessionSummary {
	if sc.Heading == "" || !sc.HasNumber {
		return nil
	}

	full := synopsisText(text, sections, sc.Heading)
	return &SessionSummary{
		Base:          Base{Kind: KindSessionSummary, Title: sc.Title},
		SessionNumber: sc.SessionNumber,
		Status:        e.sessionStatus(sections),
		BriefSynopsis: briefSynopsis(full, e.config.SynopsisMin, e.config.SynopsisMax),
		FullSummary:   full,
	}
}

// sessionStatus is "complete" when a closing-narrative section is present
// and non-empty, "draft" otherwise.
func (e *Extractor) sessionStatus(sections []section) string {
	for _, s := range sections {
		if s.heading.Level < 2 || s.body == "" {
			continue
		}
		if headingMatches(s.heading.Text, e.completionMarkers) {
			return "complete"
		}
	}
	return "draft"
}

// synopsisText returns the body of the first synopsis-style section, or the
// first paragraph block of the document when there is none.
func synopsisText(text string, sections []section, title string) string {
	for _, s := range sections {
		if s.heading.Level >= 2 && s.body != "" && headingMatches(s.heading.Text, synopsisHeadings) {
			return s.body
		}
	}

	headingLines := make(map[string]bool, len(sections)+1)
	headingLines[title] = true
	for _, s := range sections {
		headingLines[strings.TrimSpace(s.heading.Text)] = true
	}

	var block []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || headingLines[trimmed] {
			if len(block) > 0 {
				break
			}
			continue
		}
		block = append(block, trimmed)
	}
	return strings.Join(block, "\n")
}

// briefSynopsis truncates full to at most maxLen characters. It prefers the
// last sentence end at or beyond minLen, then the last word boundary; the
// result is always a prefix of full and is never padded.
func briefSynopsis(full string, minLen, maxLen int) string {
	runes := []rune(full)
	if maxLen <= 0 || len(runes) <= maxLen {
		return full
	}

	for i := maxLen - 1; i >= minLen-1 && i > 0; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return string(runes[:i+1])
		}
	}

	for i := maxLen; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return strings.TrimRightFunc(string(runes[:i]), unicode.IsSpace)
		}
	}
	return string(runes[:maxLen])
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
