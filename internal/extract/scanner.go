package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Mention is a raw candidate occurrence before filtering and promotion.
type Mention struct {
	Kind    Kind
	Title   string
	Context string // fixed-size character window around the title span
	Start   int    // title span within the scanned text
	End     int
	Role    string // NPC role captured inline ("Durnan the barkeep")
	Owner   string // item holder captured inline ("Thorin carried ...")
	Pattern string // name of the pattern that produced the mention
	Weak    bool   // prepositional location; promoted only when typed
	order   int    // pattern declaration index, the offset tie-break
}

// scanPattern is one lexical pattern for one entity kind.
type scanPattern struct {
	name  string
	regex *regexp.Regexp
	title int // submatch index of the title
	role  int // submatch index of an inline NPC role, 0 = none
	owner int // submatch index of an inline item owner, 0 = none
	weak  bool
}

// Text fragments shared by the pattern tables. Names never span lines.
const (
	sp         = `[ \t]+`
	properWord = `[A-Z][a-z]+(?:['’-][A-Za-z]+)?`
	properName = properWord + `(?:` + sp + properWord + `){0,2}`
	placeWord  = `[A-Z][a-z']+`
)

// Scanner runs the per-kind pattern batteries over a document's text.
type Scanner struct {
	patterns map[Kind][]*scanPattern
	roster   map[Kind]*regexp.Regexp
	radius   int
}

// NewScanner compiles the pattern tables. extraRoles extend the NPC role
// nouns; radius is the context window size on each side of a mention.
func NewScanner(extraRoles []string, radius int) *Scanner {
	roles := append(append([]string{}, defaultRoleNouns...), extraRoles...)
	return &Scanner{
		patterns: map[Kind][]*scanPattern{
			KindNPC:      initNPCPatterns(roles),
			KindLocation: initLocationPatterns(),
			KindItem:     initItemPatterns(),
			KindQuest:    initQuestPatterns(),
		},
		roster: map[Kind]*regexp.Regexp{
			KindNPC:      regexp.MustCompile(`^(` + properName + `)(?:[ \t]*[-–—:,(][ \t]*(?:(?:a|an|the)[ \t]+)?([a-z][a-z'-]*(?:[ \t]+[a-z][a-z'-]*){0,2}))?`),
			KindLocation: regexp.MustCompile(`^((?:[Tt]he[ \t]+)?` + placeWord + `(?:[ \t]+(?:of[ \t]+(?:the[ \t]+)?)?` + placeWord + `){0,4})`),
			KindItem:     regexp.MustCompile(`^((?:[A-Za-z][a-z'-]*)(?:[ \t]+(?:of[ \t]+(?:the[ \t]+)?)?[A-Za-z][a-z'-]*){0,4})`),
			KindQuest:    regexp.MustCompile(`^([A-Za-z][^.;:!?\n]{3,80})`),
		},
		radius: radius,
	}
}

func initNPCPatterns(roles []string) []*scanPattern {
	roleAlt := alternation(roles)
	return []*scanPattern{
		// Durnan the barkeep / Volo, a famous author
		{
			name:  "name_role",
			regex: regexp.MustCompile(`\b(` + properName + `)(?:,` + sp + `(?:a|an|the)` + sp + `|` + sp + `the` + sp + `)(?:[a-z-]+` + sp + `)?(` + roleAlt + `)\b`),
			title: 1,
			role:  2,
		},
		// Durnan said / Volo helped
		{
			name:  "name_verb",
			regex: regexp.MustCompile(`\b(` + properName + `)` + sp + `(?:said|says|asked|asks|told|tells|replied|shouted|whispered|explained|offered|warned|greeted|helped|helps|gave|gives|handed|revealed|agreed|refused|laughed|smiled|nodded|insisted|demanded|promised|thanked|betrayed|attacked|hired|introduced)\b`),
			title: 1,
		},
		// met Durnan / spoke with Volo
		{
			name:  "meet_name",
			regex: regexp.MustCompile(`\b(?:met|meet|meets|meeting|spoke` + sp + `(?:with|to)|talked` + sp + `(?:with|to)|introduced` + sp + `to|hired` + sp + `by|rescued|freed|fought|confronted|interrogated)` + sp + `(` + properName + `)\b`),
			title: 1,
		},
	}
}

func initLocationPatterns() []*scanPattern {
	locNouns := alternation(locationNouns)
	return []*scanPattern{
		// the city of Waterdeep
		{
			name:  "place_of",
			regex: regexp.MustCompile(`(?i:\b(?:` + alternation(placeOfNouns) + `))` + sp + `of` + sp + `(` + placeWord + `(?:` + sp + placeWord + `){0,2})\b`),
			title: 1,
		},
		// Yawning Portal / Temple of Tyr / Castle Ward
		{
			name:  "named_place",
			regex: regexp.MustCompile(`\b((?:` + placeWord + sp + `){1,3}(?:` + locNouns + `)(?:` + sp + `of` + sp + `(?:the` + sp + `)?` + placeWord + `(?:` + sp + placeWord + `){0,2})?)\b`),
			title: 1,
		},
		{
			name:  "noun_of_place",
			regex: regexp.MustCompile(`\b((?:` + locNouns + `)` + sp + `of` + sp + `(?:the` + sp + `)?` + placeWord + `(?:` + sp + placeWord + `){0,2})\b`),
			title: 1,
		},
		// arrived in Waterdeep / at the Yawning Portal
		{
			name:  "preposition_place",
			regex: regexp.MustCompile(`\b(?:at|in|into|to|from|toward|towards|near|inside|outside|reached|entered|visited|left|leaving|through|across|beneath|under)` + sp + `(?:the` + sp + `)?(` + placeWord + `(?:` + sp + placeWord + `){0,2})\b`),
			title: 1,
			weak:  true,
		},
	}
}

func initItemPatterns() []*scanPattern {
	lower := alternation(itemNouns)
	capitalized := make([]string, len(itemNouns))
	for i, n := range itemNouns {
		capitalized[i] = capitalizeFirst(n)
	}
	upper := alternation(capitalized)
	ofName := `(?:` + sp + `of` + sp + `(?:the` + sp + `)?` + placeWord + `(?:` + sp + placeWord + `){0,2})`

	return []*scanPattern{
		// Thorin found an ancestral blade / carried his potion of healing
		{
			name: "acquire_item",
			regex: regexp.MustCompile(`(?:\b(` + properWord + `)` + sp + `)?\b(?:found|finds|received|receives|obtained|obtains|looted|loots|picked` + sp + `up|acquired|acquires|bought|buys|purchased|purchases|stole|steals|carried|carries|carrying|wields|wielded|wielding|discovered|discovers|recovered|claimed|took|was` + sp + `given|were` + sp + `given|traded|sold)` +
				sp + `(?:a|an|the|his|her|their|its|some|two|three|several|our)` + sp +
				`((?:[a-z][a-z'-]{2,}` + sp + `){0,2}(?:` + lower + `)(?:s|es)?(?:` + sp + `of` + sp + `(?:the` + sp + `)?[A-Za-z][a-z']+(?:` + sp + `[A-Z][a-z']+)*)?)\b`),
			title: 2,
			owner: 1,
		},
		// Flame Tongue Sword / Wand of Orcus
		{
			name:  "named_item",
			regex: regexp.MustCompile(`\b((?:[A-Z][a-z]+` + sp + `){1,2}(?:` + upper + `)` + ofName + `?)\b`),
			title: 1,
		},
		{
			name:  "item_of_name",
			regex: regexp.MustCompile(`\b((?:` + upper + `)` + ofName + `)\b`),
			title: 1,
		},
	}
}

func initQuestPatterns() []*scanPattern {
	verbs := `find|rescue|retrieve|recover|deliver|escort|investigate|defeat|slay|protect|destroy|locate|hunt` + sp + `down|track` + sp + `down|clear` + sp + `out|bring` + sp + `back|capture|uncover|avenge`
	return []*scanPattern{
		// Quest: Recover the stolen statue
		{
			name:  "quest_line",
			regex: regexp.MustCompile(`(?im)^[ \t]*(?:quest|objective|task|mission|goal|hook)[ \t]*:[ \t]*([^\n]{3,80})$`),
			title: 1,
		},
		// asked the party to rescue the miners
		{
			name:  "quest_verb",
			regex: regexp.MustCompile(`(?i)\b((?:` + verbs + `)` + sp + `[^.,;:!?\n]{3,60}?)(?:[.,;:!?\n]|$|` + sp + `(?:before|for|by|and|so|while|because|until|when|if)\b)`),
			title: 1,
		},
	}
}

// Scan runs every pattern for kind over text and returns the mentions in
// offset order, ties broken by pattern declaration order. Titles are raw;
// the Governor cleans them.
func (s *Scanner) Scan(text string, kind Kind) []Mention {
	return s.ScanBounded(text, kind, nil)
}

// ScanBounded is Scan with extra hard edges for context windows, given as
// sorted byte offsets into text (heading line starts and ends).
func (s *Scanner) ScanBounded(text string, kind Kind, bounds []int) []Mention {
	var mentions []Mention
	for order, p := range s.patterns[kind] {
		for _, m := range p.regex.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2*p.title], m[2*p.title+1]
			if start < 0 {
				continue
			}
			mention := Mention{
				Kind:    kind,
				Title:   text[start:end],
				Context: s.window(text, start, end, bounds),
				Start:   start,
				End:     end,
				Pattern: p.name,
				Weak:    p.weak,
				order:   order,
			}
			if p.role > 0 && m[2*p.role] >= 0 {
				mention.Role = strings.ToLower(text[m[2*p.role]:m[2*p.role+1]])
			}
			if p.owner > 0 && m[2*p.owner] >= 0 {
				mention.Owner = text[m[2*p.owner]:m[2*p.owner+1]]
			}
			mentions = append(mentions, mention)
		}
	}
	sortMentions(mentions)
	return mentions
}

// ScanRoster reads list-style sections ("## NPCs", "## Loot") where every
// line names one entity of the section's kind. offset maps body positions
// back into the full text.
func (s *Scanner) ScanRoster(body string, offset int, kind Kind) []Mention {
	re := s.roster[kind]
	if re == nil {
		return nil
	}

	var mentions []Mention
	pos := 0
	for _, line := range strings.SplitAfter(body, "\n") {
		lineStart := pos
		pos += len(line)

		trimmed := strings.TrimRight(line, "\n")
		lead := len(trimmed) - len(strings.TrimLeft(trimmed, " \t-*•+[]x"))
		m := re.FindStringSubmatchIndex(trimmed[lead:])
		if m == nil {
			continue
		}
		start := offset + lineStart + lead + m[2]
		end := offset + lineStart + lead + m[3]
		mention := Mention{
			Kind:    kind,
			Title:   trimmed[lead+m[2] : lead+m[3]],
			Context: trimmed,
			Start:   start,
			End:     end,
			Pattern: "roster",
			order:   -1,
		}
		if kind == KindNPC && len(m) > 5 && m[4] >= 0 {
			mention.Role = cutAtPreposition(trimmed[lead+m[4] : lead+m[5]])
		}
		mentions = append(mentions, mention)
	}
	return mentions
}

// window returns up to radius characters either side of [start, end),
// widened to rune boundaries. It never crosses a blank line or any of
// bounds, so a mention only sees its own paragraph.
func (s *Scanner) window(text string, start, end int, bounds []int) string {
	lo := start - s.radius
	if lo < 0 {
		lo = 0
	}
	hi := end + s.radius
	if hi > len(text) {
		hi = len(text)
	}
	if i := strings.LastIndex(text[lo:start], "\n\n"); i >= 0 {
		lo += i + 2
	}
	if i := strings.Index(text[end:hi], "\n\n"); i >= 0 {
		hi = end + i
	}
	for _, b := range bounds {
		if b > lo && b <= start {
			lo = b
		}
		if b < hi && b >= end {
			hi = b
		}
	}
	for lo > 0 && !isRuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !isRuneStart(text[hi]) {
		hi++
	}
	return text[lo:hi]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func sortMentions(mentions []Mention) {
	sort.SliceStable(mentions, func(i, j int) bool {
		if mentions[i].Start != mentions[j].Start {
			return mentions[i].Start < mentions[j].Start
		}
		return mentions[i].order < mentions[j].order
	})
}

var rolePrepositions = map[string]bool{"of": true, "at": true, "in": true, "from": true, "for": true, "who": true, "with": true}

// cutAtPreposition trims a roster role to its head noun phrase:
// "barkeep of the Yawning Portal" becomes "barkeep".
func cutAtPreposition(role string) string {
	words := strings.Fields(role)
	for i, w := range words {
		if rolePrepositions[w] {
			words = words[:i]
			break
		}
	}
	return strings.Join(words, " ")
}
