package extract

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Kind discriminates the Entity variants.
type Kind string

const (
	KindNPC            Kind = "npc"
	KindLocation       Kind = "location"
	KindItem           Kind = "item"
	KindQuest          Kind = "quest"
	KindSessionSummary Kind = "session_summary"
)

// Kinds lists the non-summary kinds in assembly order.
var Kinds = []Kind{KindNPC, KindLocation, KindItem, KindQuest}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindNPC, KindLocation, KindItem, KindQuest, KindSessionSummary:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// LocationType is the closed vocabulary for Location.Type.
type LocationType string

const (
	LocationCity       LocationType = "city"
	LocationTown       LocationType = "town"
	LocationVillage    LocationType = "village"
	LocationDungeon    LocationType = "dungeon"
	LocationTavern     LocationType = "tavern"
	LocationShop       LocationType = "shop"
	LocationTemple     LocationType = "temple"
	LocationLandmark   LocationType = "landmark"
	LocationWilderness LocationType = "wilderness"
)

// ItemType is the closed vocabulary for Item.Type.
type ItemType string

const (
	ItemWeapon          ItemType = "weapon"
	ItemArmor           ItemType = "armor"
	ItemShield          ItemType = "shield"
	ItemConsumable      ItemType = "consumable"
	ItemTool            ItemType = "tool"
	ItemAdventuringGear ItemType = "adventuring_gear"
	ItemTreasure        ItemType = "treasure"
	ItemMagicItem       ItemType = "magic_item"
)

// ItemRarity is the closed vocabulary for Item.Rarity.
type ItemRarity string

const (
	RarityCommon    ItemRarity = "common"
	RarityUncommon  ItemRarity = "uncommon"
	RarityVeryRare  ItemRarity = "very rare"
	RarityRare      ItemRarity = "rare"
	RarityLegendary ItemRarity = "legendary"
	RarityArtifact  ItemRarity = "artifact"
)

// Importance grades how central an NPC is to the session.
type Importance string

const (
	ImportanceMinor      Importance = "minor"
	ImportanceSupporting Importance = "supporting"
	ImportanceMajor      Importance = "major"
)

// Base holds the fields shared by every entity.
type Base struct {
	Kind           Kind   `json:"kind"`
	Title          string `json:"title"`
	SourceSessions []int  `json:"sourceSessions,omitempty"`
}

// Header returns the shared fields.
func (b *Base) Header() *Base { return b }

// Entity is a structured record recovered from session notes. The set of
// implementations is closed: *NPC, *Location, *Item, *Quest, *SessionSummary.
type Entity interface {
	Header() *Base
	sealed()
}

type NPC struct {
	Base
	Role       string     `json:"role,omitempty"`
	Faction    string     `json:"faction,omitempty"`
	Importance Importance `json:"importance,omitempty"`
	Status     string     `json:"status,omitempty"`
}

type Location struct {
	Base
	Type            LocationType `json:"type,omitempty"`
	Region          string       `json:"region,omitempty"`
	FactionPresence string       `json:"faction_presence,omitempty"`
	Status          string       `json:"status,omitempty"`
}

type Item struct {
	Base
	Type   ItemType   `json:"type,omitempty"`
	Rarity ItemRarity `json:"rarity,omitempty"`
	Owner  string     `json:"owner,omitempty"`
	Status string     `json:"status,omitempty"`
}

type Quest struct {
	Base
	Status  string `json:"status,omitempty"`
	Type    string `json:"type,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Faction string `json:"faction,omitempty"`
}

// SessionSummary describes the session itself. At most one per document,
// and it never carries sourceSessions.
type SessionSummary struct {
	Base
	SessionNumber int    `json:"session_number"`
	Status        string `json:"status"`
	BriefSynopsis string `json:"brief_synopsis"`
	FullSummary   string `json:"full_summary"`
}

func (*NPC) sealed()            {}
func (*Location) sealed()       {}
func (*Item) sealed()           {}
func (*Quest) sealed()          {}
func (*SessionSummary) sealed() {}

// UnmarshalEntity decodes a JSON entity into its concrete variant using the
// "kind" discriminator.
func UnmarshalEntity(data []byte) (Entity, error) {
	var probe struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding entity kind: %w", err)
	}

	var e Entity
	switch probe.Kind {
	case KindNPC:
		e = &NPC{}
	case KindLocation:
		e = &Location{}
	case KindItem:
		e = &Item{}
	case KindQuest:
		e = &Quest{}
	case KindSessionSummary:
		e = &SessionSummary{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, probe.Kind)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decoding %s entity: %w", probe.Kind, err)
	}
	return e, nil
}

// MergeSessions returns the sorted union of two session sets.
func MergeSessions(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	seen := make(map[int]bool, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, set := range [][]int{a, b} {
		for _, n := range set {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Ints(out)
	return out
}
