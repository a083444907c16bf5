package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsupportedKind is returned when an operation is asked to handle an
// entity kind it has no table for.
var ErrUnsupportedKind = errors.New("unsupported entity kind")

// keywordTable is a compiled keywordSet list. Each subtype gets one
// case-insensitive, word-bounded regex over its keywords (plurals allowed).
type keywordTable struct {
	values   []string
	patterns []*regexp.Regexp
}

func compileKeywordTable(sets []keywordSet) *keywordTable {
	t := &keywordTable{
		values:   make([]string, 0, len(sets)),
		patterns: make([]*regexp.Regexp, 0, len(sets)),
	}
	for _, set := range sets {
		t.values = append(t.values, set.value)
		t.patterns = append(t.patterns, regexp.MustCompile(`(?i)\b(?:`+alternation(set.keywords)+`)(?:s|es)?\b`))
	}
	return t
}

// best returns the value whose keywords occur most often in window.
// Ties go to the first-declared value; no match returns "".
func (t *keywordTable) best(window string) string {
	return t.bestNear(window, -1, -1)
}

// bestNear is best with a proximity tie-break: among values with the same
// count, the one with a keyword closest to [start, end) wins, and only then
// declaration order. A negative start disables the proximity step.
func (t *keywordTable) bestNear(window string, start, end int) string {
	bestValue := ""
	bestCount := 0
	bestDist := 0
	for i, re := range t.patterns {
		locs := re.FindAllStringIndex(window, -1)
		n := len(locs)
		if n == 0 || n < bestCount {
			continue
		}
		dist := nearestGap(locs, start, end)
		if n > bestCount || (start >= 0 && dist < bestDist) {
			bestValue = t.values[i]
			bestCount = n
			bestDist = dist
		}
	}
	return bestValue
}

// nearestGap is the smallest byte gap between any match and [start, end).
// Overlapping matches have gap 0.
func nearestGap(locs [][]int, start, end int) int {
	best := -1
	for _, loc := range locs {
		gap := 0
		switch {
		case loc[1] <= start:
			gap = start - loc[1]
		case loc[0] >= end:
			gap = loc[0] - end
		}
		if best < 0 || gap < best {
			best = gap
		}
	}
	return best
}

// Classifier assigns closed-vocabulary subtypes from a mention's context
// window.
type Classifier struct {
	locationTypes *keywordTable
	itemTypes     *keywordTable
	itemRarities  *keywordTable
}

// NewClassifier compiles the default keyword tables.
func NewClassifier() *Classifier {
	return &Classifier{
		locationTypes: compileKeywordTable(locationTypeTable),
		itemTypes:     compileKeywordTable(itemTypeTable),
		itemRarities:  compileKeywordTable(itemRarityTable),
	}
}

// Classify returns the subtype for a Location or Item mention, or "" when
// no keyword matches. The title is always part of the scored text, so
// self-describing names ("Temple of Tyr") classify without context. Equal
// keyword counts go to the subtype mentioned nearest the title. Any other
// kind returns ErrUnsupportedKind.
func (c *Classifier) Classify(kind Kind, title, window string) (string, error) {
	text := window
	if !strings.Contains(window, title) {
		text = title + " " + window
	}
	start := strings.Index(text, title)
	end := start + len(title)
	switch kind {
	case KindLocation:
		return c.locationTypes.bestNear(text, start, end), nil
	case KindItem:
		return c.itemTypes.bestNear(text, start, end), nil
	default:
		return "", fmt.Errorf("%w: cannot classify %q", ErrUnsupportedKind, kind)
	}
}

// statusTable matches status keywords that are grammatically tied to a
// title: "<title> was killed", "Durnan, now dead", "the goblins captured
// <title>". Keywords elsewhere in the window do not count.
type statusTable struct {
	values []string
	after  []*regexp.Regexp // applied to the text following the title
	before []*regexp.Regexp // applied to the text preceding it; nil when subject-only
}

// statusAux are the words allowed between a title and a trailing status
// keyword.
const statusAux = `(?:was|were|is|are|lay|lies|lying|remains|remained|had|has|have|been|being|now|found|left|still|apparently|presumably|presumed|reportedly|later|who|which|got|became|already|finally|then|also)`

func compileStatusTable(sets []keywordSet) *statusTable {
	t := &statusTable{}
	for _, set := range sets {
		kw := `(?:` + alternation(set.keywords) + `)(?:s|es)?`
		t.values = append(t.values, set.value)
		t.after = append(t.after, regexp.MustCompile(`(?i)^[ \t]*(?:[,(:\-–—][ \t]*)?(?:`+statusAux+`[ \t]+){0,3}`+kw+`\b`))
		var before *regexp.Regexp
		if !subjectOnlyStatuses[set.value] {
			before = regexp.MustCompile(`(?i)\b` + kw + `[ \t]+(?:(?:the|a|an|his|her|their|its|our|my|poor|old)[ \t]+)?$`)
		}
		t.before = append(t.before, before)
	}
	return t
}

// attached returns the status tied to text[start:end], looking at most
// radius bytes either side. Trailing predicates win over preceding verbs;
// within each, the first-declared value wins. No attachment returns "".
func (t *statusTable) attached(text string, start, end, radius int) string {
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	after, before := text[end:hi], text[lo:start]

	for i, re := range t.after {
		if re.MatchString(after) {
			return t.values[i]
		}
	}
	for i, re := range t.before {
		if re != nil && re.MatchString(before) {
			return t.values[i]
		}
	}
	return ""
}

// Rarity returns the item rarity suggested by window, or "".
func (c *Classifier) Rarity(window string) ItemRarity {
	return ItemRarity(c.itemRarities.best(window))
}

// mustClassify is the scanner/classifier seam. Asking for an unsupported
// kind here is a programming error.
func (c *Classifier) mustClassify(kind Kind, title, window string) string {
	v, err := c.Classify(kind, title, window)
	if err != nil {
		panic(err)
	}
	return v
}

// alternation joins words into a regex alternation, escaping each and
// allowing any run of whitespace inside multi-word phrases.
func alternation(words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		fields := strings.Fields(w)
		for i, f := range fields {
			fields[i] = regexp.QuoteMeta(f)
		}
		parts = append(parts, strings.Join(fields, `\s+`))
	}
	return strings.Join(parts, "|")
}
