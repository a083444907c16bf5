// Package extract recovers structured campaign entities from free-form
// tabletop session notes without any schema markup in the source:
// - NPCs ("Durnan the barkeep served drinks")
// - Locations ("the Yawning Portal, a tavern")
// - Items ("Thorin carried his ancestral blade")
// - Quests ("asked the party to rescue the missing miners")
// - One session summary per document
//
// Extraction is rule-based and pure: the same document and filename always
// produce the same entity list, and no state is kept between calls.
package extract

import (
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hurttlocker/questlog/internal/ingest"
)

// Config holds the extraction tunables. Zero values fall back to defaults.
type Config struct {
	// ContextRadius is the number of characters either side of a mention
	// handed to the classifier. Default: 50.
	ContextRadius int `yaml:"context_radius" json:"context_radius"`

	// SynopsisMin and SynopsisMax bound brief_synopsis. Default: 100/500.
	SynopsisMin int `yaml:"synopsis_min" json:"synopsis_min"`
	SynopsisMax int `yaml:"synopsis_max" json:"synopsis_max"`

	// StopWords extend the built-in common-word filter.
	StopWords []string `yaml:"stop_words" json:"stop_words,omitempty"`

	// CompletionMarkers extend the section headings that mark a write-up
	// as complete.
	CompletionMarkers []string `yaml:"completion_markers" json:"completion_markers,omitempty"`

	// RoleNouns extend the role words recognized after an NPC name.
	RoleNouns []string `yaml:"role_nouns" json:"role_nouns,omitempty"`
}

// DefaultConfig returns the default extraction settings.
func DefaultConfig() Config {
	return Config{
		ContextRadius: 50,
		SynopsisMin:   100,
		SynopsisMax:   500,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.ContextRadius <= 0 {
		c.ContextRadius = d.ContextRadius
	}
	if c.SynopsisMin <= 0 {
		c.SynopsisMin = d.SynopsisMin
	}
	if c.SynopsisMax <= 0 {
		c.SynopsisMax = d.SynopsisMax
	}
	if c.SynopsisMin > c.SynopsisMax {
		c.SynopsisMin = c.SynopsisMax
	}
}

// Extractor runs the extraction pipeline. It is immutable after
// construction and safe for concurrent use.
type Extractor struct {
	config            Config
	governorConfig    GovernorConfig
	scanner           *Scanner
	classifier        *Classifier
	governor          *Governor
	completionMarkers []string
	logger            *slog.Logger

	npcStatus      *statusTable
	locationStatus *statusTable
	itemStatus     *statusTable
	questStatus    *keywordTable
	questType      *keywordTable
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConfig replaces the extraction settings.
func WithConfig(cfg Config) Option {
	return func(e *Extractor) {
		e.config = cfg
	}
}

// WithGovernor sets a custom candidate filter config.
func WithGovernor(cfg GovernorConfig) Option {
	return func(e *Extractor) {
		e.governorConfig = cfg
	}
}

// WithLogger routes debug diagnostics to l. The default discards them.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor with all rule tables compiled.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		config:         DefaultConfig(),
		governorConfig: DefaultGovernorConfig(),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.config.normalize()

	gc := e.governorConfig
	gc.StopWords = append(append([]string{}, gc.StopWords...), e.config.StopWords...)
	e.governor = NewGovernor(gc)
	e.scanner = NewScanner(e.config.RoleNouns, e.config.ContextRadius)
	e.classifier = NewClassifier()
	e.completionMarkers = append(append([]string{}, defaultCompletionMarkers...), e.config.CompletionMarkers...)

	e.npcStatus = compileStatusTable(npcStatusTable)
	e.locationStatus = compileStatusTable(locationStatusTable)
	e.itemStatus = compileStatusTable(itemStatusTable)
	e.questStatus = compileKeywordTable(questStatusTable)
	e.questType = compileKeywordTable(questTypeTable)
	return e
}

// Extract returns the entities recovered from doc, session summary first,
// then NPCs, locations, items and quests, each in text order. filename is
// only consulted for the session number. Unusual or empty input yields
// fewer entities, never an error.
func (e *Extractor) Extract(doc *ingest.Document, filename string) []Entity {
	entities := []Entity{}
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return entities
	}
	text := doc.Text

	sc := resolveSessionContext(filename, doc.Headings)
	sections := splitSections(text, doc.Headings)
	summary := e.buildSessionSummary(sc, text, sections)

	npcs := e.promoteNPCs(text, e.mentions(text, sections, KindNPC))
	npcTitles := make(map[string]bool, len(npcs))
	for _, n := range npcs {
		npcTitles[n.Header().Title] = true
	}
	locations := e.promoteLocations(text, e.mentions(text, sections, KindLocation), npcTitles)
	items := e.promoteItems(text, e.mentions(text, sections, KindItem))
	quests := e.promoteQuests(text, e.mentions(text, sections, KindQuest))

	candidates := make([]Entity, 0, len(npcs)+len(locations)+len(items)+len(quests))
	for _, group := range [][]Entity{npcs, locations, items, quests} {
		candidates = append(candidates, group...)
	}
	reconciled := reconcile(candidates, sc.SessionNumber, sc.HasNumber)
	byKind := partitionByKind(reconciled)
	result := assemble(summary, byKind[KindNPC], byKind[KindLocation], byKind[KindItem], byKind[KindQuest])

	e.logger.Debug("extracted session entities",
		"file", filename,
		"session", sc.SessionNumber,
		"has_session", sc.HasNumber,
		"summary", summary != nil,
		"npcs", len(byKind[KindNPC]),
		"locations", len(byKind[KindLocation]),
		"items", len(byKind[KindItem]),
		"quests", len(byKind[KindQuest]),
	)
	return append(entities, result...)
}

// mentions runs the full-text scan for kind plus the roster scan of every
// list section headed for that kind. Context windows stop at heading lines.
func (e *Extractor) mentions(text string, sections []section, kind Kind) []Mention {
	mentions := e.scanner.ScanBounded(text, kind, headingBounds(sections))
	for _, s := range sections {
		if s.heading.Level < 2 || s.body == "" || rosterKind(s.heading.Text) != kind {
			continue
		}
		mentions = append(mentions, e.scanner.ScanRoster(s.body, s.offset, kind)...)
	}
	sortMentions(mentions)
	return mentions
}

func rosterKind(heading string) Kind {
	for _, r := range rosterHeadings {
		if headingMatches(heading, r.keywords) {
			return r.kind
		}
	}
	return ""
}

var (
	factionRE = regexp.MustCompile(`\b((?:` + placeWord + sp + `){0,2}(?:` + alternation(factionNouns) + `)(?:` + sp + `of` + sp + `(?:the` + sp + `)?` + placeWord + `(?:` + sp + placeWord + `){0,2})?)\b`)
	regionRE  = regexp.MustCompile(`\b((?:` + placeWord + sp + `){1,2}(?:` + alternation(regionNouns) + `))\b`)

	questOwnerByRE  = regexp.MustCompile(`\b(?:asked|hired|tasked|begged|commissioned|sent|paid)` + sp + `by` + sp + `(` + properName + `)`)
	questOwnerSubRE = regexp.MustCompile(`\b(` + properName + `)` + sp + `(?:asked|hired|tasked|begged|commissioned|wants|needs|offered|paid|sent)` + sp + `(?:us|them|the` + sp + `(?:party|group|adventurers|heroes|players))\b`)
	possessiveRE    = regexp.MustCompile(`\b(` + properWord + `)['’]s` + sp + `(?:[a-z][a-z'-]*` + sp + `)?$`)
)

func (e *Extractor) promoteNPCs(text string, mentions []Mention) []Entity {
	var out []Entity
	for _, m := range mentions {
		title, ok := e.governor.Clean(KindNPC, m.Title)
		if !ok {
			continue
		}
		start, end := titleSpan(text, m, title)
		role := m.Role
		if e.governor.IsStopWord(role) {
			role = ""
		}
		out = append(out, &NPC{
			Base:       Base{Kind: KindNPC, Title: title},
			Role:       role,
			Faction:    e.firstName(factionRE, m.Context, title),
			Importance: importanceFor(countMentions(text, title)),
			Status:     e.npcStatus.attached(text, start, end, e.config.ContextRadius),
		})
	}
	return out
}

func (e *Extractor) promoteLocations(text string, mentions []Mention, npcTitles map[string]bool) []Entity {
	var out []Entity
	for _, m := range mentions {
		title, ok := e.governor.Clean(KindLocation, m.Title)
		if !ok {
			continue
		}
		if m.Weak && npcTitles[title] {
			continue
		}
		typ := LocationType(e.classifier.mustClassify(KindLocation, title, m.Context))
		if m.Weak && typ == "" {
			continue
		}
		start, end := titleSpan(text, m, title)
		out = append(out, &Location{
			Base:            Base{Kind: KindLocation, Title: title},
			Type:            typ,
			Region:          e.firstName(regionRE, m.Context, title),
			FactionPresence: e.firstName(factionRE, m.Context, title),
			Status:          e.locationStatus.attached(text, start, end, e.config.ContextRadius),
		})
	}
	return out
}

func (e *Extractor) promoteItems(text string, mentions []Mention) []Entity {
	var out []Entity
	for _, m := range mentions {
		title, ok := e.governor.Clean(KindItem, m.Title)
		if !ok {
			continue
		}
		start, end := titleSpan(text, m, title)
		owner := m.Owner
		if owner == "" {
			lo := m.Start - 40
			if lo < 0 {
				lo = 0
			}
			if pm := possessiveRE.FindStringSubmatch(text[lo:m.Start]); pm != nil {
				owner = pm[1]
			}
		}
		if e.governor.IsStopWord(owner) {
			owner = ""
		}
		out = append(out, &Item{
			Base:   Base{Kind: KindItem, Title: title},
			Type:   ItemType(e.classifier.mustClassify(KindItem, title, m.Context)),
			Rarity: e.classifier.Rarity(m.Context),
			Owner:  owner,
			Status: e.itemStatus.attached(text, start, end, e.config.ContextRadius),
		})
	}
	return out
}

func (e *Extractor) promoteQuests(text string, mentions []Mention) []Entity {
	var out []Entity
	for _, m := range mentions {
		title, ok := e.governor.CleanQuest(m.Title)
		if !ok {
			continue
		}
		owner := e.firstName(questOwnerByRE, m.Context, "")
		if owner == "" {
			owner = e.firstName(questOwnerSubRE, m.Context, "")
		}
		// Quest phrases are clauses themselves; their status words share the sentence.
		sentence := sentenceAround(text, m.Start, m.End)
		out = append(out, &Quest{
			Base:    Base{Kind: KindQuest, Title: title},
			Status:  e.questStatus.best(sentence),
			Type:    e.questType.best(sentence),
			Owner:   owner,
			Faction: e.firstName(factionRE, m.Context, ""),
		})
	}
	return out
}

// titleSpan narrows a mention's span to the cleaned title inside it.
func titleSpan(text string, m Mention, title string) (int, int) {
	if i := strings.Index(text[m.Start:m.End], title); i >= 0 {
		return m.Start + i, m.Start + i + len(title)
	}
	return m.Start, m.End
}

// sentenceAround returns the sentence of text containing [start, end).
func sentenceAround(text string, start, end int) string {
	lo := strings.LastIndexAny(text[:start], ".!?\n") + 1
	hi := len(text)
	if i := strings.IndexAny(text[end:], ".!?\n"); i >= 0 {
		hi = end + i
	}
	return text[lo:hi]
}

// firstName returns the first cleaned capture of re in window that is not
// the mention's own title.
func (e *Extractor) firstName(re *regexp.Regexp, window, exclude string) string {
	for _, m := range re.FindAllStringSubmatch(window, -1) {
		name, ok := e.governor.Clean("", m[1])
		if !ok || name == exclude {
			continue
		}
		return name
	}
	return ""
}

// countMentions counts whole-word occurrences of title in text.
func countMentions(text, title string) int {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(title) + `\b`)
	return len(re.FindAllStringIndex(text, -1))
}

func importanceFor(mentions int) Importance {
	switch {
	case mentions >= 4:
		return ImportanceMajor
	case mentions >= 2:
		return ImportanceSupporting
	case mentions == 1:
		return ImportanceMinor
	}
	return ""
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// normalizeWhitespace normalizes whitespace in text.
func normalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}
