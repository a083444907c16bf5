package extract

import (
	"strings"
	"unicode"
)

// MaxTitleLength caps entity titles. Real names ("Durnan", "Yawning Portal",
// "Sword of Kas") are short; long captures are almost always runaway prose.
const MaxTitleLength = 50

// GovernorConfig controls candidate title filtering.
type GovernorConfig struct {
	// MinTitleLength is the minimum length of a surviving title. Default: 2.
	MinTitleLength int

	// MaxTitleLength is the maximum length of a surviving title.
	// Default: MaxTitleLength.
	MaxTitleLength int

	// MaxTitleWords caps the number of words in a title. Default: 6.
	MaxTitleWords int

	// DropMarkdownJunk removes titles that are pure markdown formatting
	// artifacts (e.g., "**", "---"). Default: true.
	DropMarkdownJunk bool

	// StopWords are added to the built-in pronoun/article/common-word list.
	StopWords []string
}

// DefaultGovernorConfig returns the recommended default governor settings.
func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		MinTitleLength:   2,
		MaxTitleLength:   MaxTitleLength,
		MaxTitleWords:    6,
		DropMarkdownJunk: true,
	}
}

// Governor is the stop-word and common-word filter every candidate passes
// before it can become an entity.
type Governor struct {
	config  GovernorConfig
	stop    map[string]bool
	generic map[Kind]map[string]bool
}

// NewGovernor creates a Governor with the given config.
func NewGovernor(cfg GovernorConfig) *Governor {
	g := &Governor{
		config:  cfg,
		stop:    make(map[string]bool, len(defaultStopWords)+len(cfg.StopWords)),
		generic: make(map[Kind]map[string]bool),
	}
	for _, w := range defaultStopWords {
		g.stop[w] = true
	}
	for _, w := range cfg.StopWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			g.stop[w] = true
		}
	}

	// A bare type noun ("Tavern", "sword") names a kind of thing, not a thing.
	g.generic[KindLocation] = lowerSet(locationNouns, placeOfNouns)
	g.generic[KindItem] = lowerSet(itemNouns)
	g.generic[KindNPC] = lowerSet(defaultRoleNouns)
	return g
}

// IsStopWord reports whether word is a pronoun, article or configured
// common word.
func (g *Governor) IsStopWord(word string) bool {
	return g.stop[strings.ToLower(strings.Trim(word, ".,;:!?'\"()"))]
}

// Clean normalizes a proper-noun candidate title and reports whether it
// survives. Leading and trailing stop words are peeled off ("Then Durnan"
// becomes "Durnan"); a title made only of stop words is rejected.
func (g *Governor) Clean(kind Kind, title string) (string, bool) {
	words := strings.Fields(trimTitlePunct(title))
	for len(words) > 0 && g.IsStopWord(words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && g.IsStopWord(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return "", false
	}

	cleaned := strings.Join(words, " ")
	if g.isNoise(kind, cleaned, len(words)) {
		return "", false
	}
	return cleaned, true
}

// CleanQuest normalizes a "<verb> <object>" quest phrase. The object must
// carry at least one word that is not a stop word, and may not open with a
// pronoun ("find it", "stop them").
func (g *Governor) CleanQuest(phrase string) (string, bool) {
	words := strings.Fields(trimTitlePunct(phrase))
	for len(words) > 0 && g.IsStopWord(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	if len(words) < 2 {
		return "", false
	}

	object := words[1:]
	if isPronoun(object[0]) {
		return "", false
	}
	meaningful := false
	for _, w := range object {
		if !g.IsStopWord(w) {
			meaningful = true
			break
		}
	}
	if !meaningful {
		return "", false
	}

	cleaned := strings.Join(words, " ")
	if len(cleaned) > g.config.MaxTitleLength*2 {
		return "", false
	}
	if g.config.DropMarkdownJunk && isMarkdownJunk(cleaned) {
		return "", false
	}
	return capitalizeFirst(cleaned), true
}

// isNoise returns true if the cleaned title should be dropped as garbage.
func (g *Governor) isNoise(kind Kind, title string, wordCount int) bool {
	if g.config.MinTitleLength > 0 && len(title) < g.config.MinTitleLength {
		return true
	}
	if g.config.MaxTitleLength > 0 && len(title) > g.config.MaxTitleLength {
		return true
	}
	if g.config.MaxTitleWords > 0 && wordCount > g.config.MaxTitleWords {
		return true
	}
	if g.config.DropMarkdownJunk && (isMarkdownJunk(title) || isOnlyFormatting(title)) {
		return true
	}
	if isNumericOrPunct(title) {
		return true
	}

	// Numbered list items ("3) ...")
	if title[0] >= '0' && title[0] <= '9' {
		return true
	}

	if g.generic[kind][strings.ToLower(title)] {
		return true
	}
	return false
}

var pronouns = map[string]bool{
	"it": true, "them": true, "him": true, "her": true, "us": true, "me": true, "you": true,
	"out": true, "that": true, "this": true, "themselves": true, "himself": true, "herself": true,
	"itself": true, "something": true, "someone": true, "anything": true, "everything": true,
}

func isPronoun(w string) bool {
	return pronouns[strings.ToLower(w)]
}

func trimTitlePunct(s string) string {
	return strings.TrimFunc(normalizeWhitespace(s), func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(".,;:!?\"()[]*_`~—–-", r)
	})
}

func capitalizeFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

func lowerSet(lists ...[]string) map[string]bool {
	out := make(map[string]bool)
	for _, list := range lists {
		for _, w := range list {
			out[strings.ToLower(w)] = true
		}
	}
	return out
}

// isMarkdownJunk detects titles that are pure markdown artifacts.
func isMarkdownJunk(s string) bool {
	stripped := strings.TrimSpace(s)
	if stripped == "" {
		return true
	}

	// All stars/dashes/pipes (table separators, horizontal rules)
	for _, r := range stripped {
		if r != '*' && r != '-' && r != '_' && r != '|' && r != ' ' && r != ':' && r != '#' {
			return false
		}
	}
	return true
}

// isNumericOrPunct returns true if the string is purely numeric or punctuation.
func isNumericOrPunct(s string) bool {
	stripped := strings.TrimSpace(s)
	if stripped == "" {
		return true
	}
	for _, r := range stripped {
		if (r < '0' || r > '9') && r != '.' && r != ',' && r != '-' && r != '+' && r != '$' && r != '%' {
			return false
		}
	}
	return true
}

// isOnlyFormatting returns true if the string is only markdown formatting characters.
func isOnlyFormatting(s string) bool {
	stripped := strings.TrimSpace(s)
	if stripped == "" {
		return true
	}
	for _, r := range stripped {
		if r != '*' && r != '_' && r != '`' && r != '#' && r != '~' && r != ' ' {
			return false
		}
	}
	return true
}
