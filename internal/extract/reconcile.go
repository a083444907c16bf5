package extract

// entityKey identifies an entity across mentions. Titles match exactly.
type entityKey struct {
	kind  Kind
	title string
}

// reconcile collapses candidates sharing a (kind, title) key. The first
// occurrence keeps its attributes; later ones contribute sessions and may
// fill attributes the first left empty, never replacing a value. When the
// document's session number is known every survivor is tagged with it.
func reconcile(candidates []Entity, session int, hasSession bool) []Entity {
	index := make(map[entityKey]int, len(candidates))
	out := make([]Entity, 0, len(candidates))
	for _, c := range candidates {
		h := c.Header()
		k := entityKey{kind: h.Kind, title: h.Title}
		if i, ok := index[k]; ok {
			fillBlanks(out[i], c)
			first := out[i].Header()
			first.SourceSessions = MergeSessions(first.SourceSessions, h.SourceSessions)
			continue
		}
		index[k] = len(out)
		out = append(out, c)
	}

	if hasSession {
		for _, e := range out {
			h := e.Header()
			h.SourceSessions = MergeSessions(h.SourceSessions, []int{session})
		}
	}
	return out
}

// fillBlanks copies the attributes dst lacks from src of the same variant.
func fillBlanks(dst, src Entity) {
	switch d := dst.(type) {
	case *NPC:
		if s, ok := src.(*NPC); ok {
			fill(&d.Role, s.Role)
			fill(&d.Faction, s.Faction)
			fill(&d.Importance, s.Importance)
			fill(&d.Status, s.Status)
		}
	case *Location:
		if s, ok := src.(*Location); ok {
			fill(&d.Type, s.Type)
			fill(&d.Region, s.Region)
			fill(&d.FactionPresence, s.FactionPresence)
			fill(&d.Status, s.Status)
		}
	case *Item:
		if s, ok := src.(*Item); ok {
			fill(&d.Type, s.Type)
			fill(&d.Rarity, s.Rarity)
			fill(&d.Owner, s.Owner)
			fill(&d.Status, s.Status)
		}
	case *Quest:
		if s, ok := src.(*Quest); ok {
			fill(&d.Status, s.Status)
			fill(&d.Type, s.Type)
			fill(&d.Owner, s.Owner)
			fill(&d.Faction, s.Faction)
		}
	}
}

func fill[T ~string](dst *T, v T) {
	if *dst == "" {
		*dst = v
	}
}

func partitionByKind(entities []Entity) map[Kind][]Entity {
	out := make(map[Kind][]Entity, len(Kinds))
	for _, e := range entities {
		k := e.Header().Kind
		out[k] = append(out[k], e)
	}
	return out
}

// assemble orders the final output: summary first, then NPCs, locations,
// items and quests.
func assemble(summary *SessionSummary, npcs, locations, items, quests []Entity) []Entity {
	out := make([]Entity, 0, 1+len(npcs)+len(locations)+len(items)+len(quests))
	if summary != nil {
		out = append(out, summary)
	}
	for _, group := range [][]Entity{npcs, locations, items, quests} {
		out = append(out, group...)
	}
	return out
}
