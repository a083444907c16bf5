package extract

// Keyword tables drive both scanning and classification. Declaration order
// is significant: classifier ties go to the earliest subtype, and pattern
// lists are evaluated in order.

// keywordSet maps one subtype value to the words that suggest it.
type keywordSet struct {
	value    string
	keywords []string
}

var locationTypeTable = []keywordSet{
	{string(LocationCity), []string{"city", "metropolis", "capital"}},
	{string(LocationTown), []string{"town", "township"}},
	{string(LocationVillage), []string{"village", "hamlet", "settlement"}},
	{string(LocationDungeon), []string{"dungeon", "crypt", "tomb", "cave", "cavern", "catacomb", "lair", "ruins", "mine", "sewer", "labyrinth"}},
	{string(LocationTavern), []string{"tavern", "inn", "bar", "alehouse", "taproom", "pub"}},
	{string(LocationShop), []string{"shop", "store", "market", "smithy", "forge", "emporium", "bazaar"}},
	{string(LocationTemple), []string{"temple", "shrine", "church", "chapel", "cathedral", "monastery", "abbey", "sanctum"}},
	{string(LocationLandmark), []string{"tower", "castle", "keep", "fortress", "citadel", "bridge", "gate", "statue", "monument", "palace", "manor", "lighthouse"}},
	{string(LocationWilderness), []string{"forest", "woods", "mountain", "swamp", "marsh", "desert", "river", "lake", "hills", "plains", "wilds", "jungle", "valley", "coast"}},
}

var itemTypeTable = []keywordSet{
	{string(ItemWeapon), []string{"weapon", "blade", "sword", "dagger", "axe", "mace", "bow", "crossbow", "spear", "warhammer", "longsword", "shortsword", "greatsword", "rapier", "scimitar", "halberd", "club", "flail", "trident"}},
	{string(ItemArmor), []string{"armor", "armour", "mail", "breastplate", "plate", "helm", "helmet", "gauntlets", "bracers"}},
	{string(ItemShield), []string{"shield", "buckler"}},
	{string(ItemConsumable), []string{"potion", "elixir", "scroll", "ration", "draught", "salve", "poultice", "poison", "antitoxin"}},
	{string(ItemTool), []string{"tool", "kit", "lockpick", "instrument", "lute", "spyglass", "compass"}},
	{string(ItemAdventuringGear), []string{"rope", "torch", "lantern", "backpack", "bedroll", "map", "key", "chest", "tent", "grappling"}},
	{string(ItemTreasure), []string{"gold", "coin", "gem", "jewel", "treasure", "necklace", "crown", "ruby", "diamond", "pearl", "emerald", "sapphire", "idol"}},
	{string(ItemMagicItem), []string{"magic", "magical", "enchanted", "wand", "ring", "amulet", "orb", "cloak", "artifact", "rod", "tome", "staff", "glowing", "arcane", "cursed", "relic"}},
}

// "very rare" precedes "rare" so that the two-word phrase wins the tie.
var itemRarityTable = []keywordSet{
	{string(RarityCommon), []string{"common"}},
	{string(RarityUncommon), []string{"uncommon"}},
	{string(RarityVeryRare), []string{"very rare"}},
	{string(RarityRare), []string{"rare"}},
	{string(RarityLegendary), []string{"legendary"}},
	{string(RarityArtifact), []string{"artifact"}},
}

var npcStatusTable = []keywordSet{
	{"dead", []string{"dead", "died", "killed", "slain", "murdered", "deceased", "executed"}},
	{"captured", []string{"captured", "imprisoned", "kidnapped", "jailed", "abducted"}},
	{"missing", []string{"missing", "vanished", "disappeared"}},
	{"hostile", []string{"hostile", "betrayed", "ambushed", "attacked"}},
}

// subjectOnlyStatuses only count when the title is the actor: "Durnan
// betrayed the party" makes Durnan hostile, "the party betrayed Durnan"
// does not.
var subjectOnlyStatuses = map[string]bool{"hostile": true}

var locationStatusTable = []keywordSet{
	{"destroyed", []string{"destroyed", "razed", "burned", "burnt", "collapsed", "ruined"}},
	{"abandoned", []string{"abandoned", "deserted"}},
	{"occupied", []string{"occupied", "besieged", "overrun", "invaded"}},
}

var itemStatusTable = []keywordSet{
	{"destroyed", []string{"destroyed", "broken", "shattered"}},
	{"stolen", []string{"stolen", "stole"}},
	{"lost", []string{"lost", "dropped", "misplaced"}},
	{"sold", []string{"sold", "traded", "pawned"}},
	{"equipped", []string{"wields", "wielded", "wielding", "equipped", "wears", "wearing", "attuned"}},
}

var questStatusTable = []keywordSet{
	{"completed", []string{"completed", "finished", "fulfilled", "succeeded", "accomplished"}},
	{"failed", []string{"failed", "abandoned"}},
	{"active", []string{"accepted", "agreed", "tasked", "hired", "asked", "must", "promised", "offered", "needs"}},
}

var questTypeTable = []keywordSet{
	{"main", []string{"main quest", "main story", "main plot"}},
	{"side", []string{"side quest", "errand", "favor", "favour"}},
	{"bounty", []string{"bounty", "reward", "contract", "wanted"}},
	{"personal", []string{"personal", "backstory", "vengeance", "revenge"}},
}

// defaultRoleNouns are the role words recognized in "<Name> the <role>"
// and "<Name>, a <role>" mentions.
var defaultRoleNouns = []string{
	"barkeep", "bartender", "innkeeper", "tavernkeeper", "shopkeeper", "merchant", "trader",
	"blacksmith", "smith", "alchemist", "priest", "priestess", "cleric", "paladin", "monk",
	"wizard", "mage", "sorcerer", "sorceress", "warlock", "witch", "necromancer", "druid", "bard",
	"guard", "captain", "sergeant", "soldier", "knight", "mercenary", "warrior", "ranger", "hunter",
	"lord", "lady", "king", "queen", "prince", "princess", "noble", "nobleman", "noblewoman",
	"mayor", "sheriff", "magistrate", "steward", "butler", "servant", "apprentice",
	"thief", "rogue", "assassin", "bandit", "spy", "informant", "smuggler", "pirate", "crimelord",
	"sage", "scholar", "librarian", "author", "healer", "hermit", "elder", "chief", "chieftain",
	"guide", "farmer", "fisherman", "sailor", "cultist", "villain", "boss", "dragon", "patron",
}

// defaultStopWords are capitalized words that are never plausible proper
// nouns on their own. Compared case-insensitively.
var defaultStopWords = []string{
	// pronouns
	"i", "me", "we", "us", "you", "he", "him", "she", "her", "it", "they", "them",
	"his", "hers", "its", "our", "ours", "their", "theirs", "my", "mine", "your", "yours",
	"everyone", "someone", "somebody", "nobody", "anyone", "everybody",
	// articles, determiners, conjunctions, prepositions
	"the", "a", "an", "this", "that", "these", "those", "there", "here", "some", "any", "each",
	"and", "but", "or", "so", "yet", "if", "as", "at", "in", "on", "of", "to", "from", "with",
	"without", "by", "for", "into", "onto", "upon", "during", "after", "before", "while",
	// sentence adverbs
	"then", "later", "when", "meanwhile", "next", "finally", "eventually", "soon", "now",
	"once", "suddenly", "afterwards", "however", "also", "still", "first", "last", "unfortunately",
	"luckily", "yes", "no", "okay", "ok",
	// note scaffolding
	"session", "chapter", "part", "act", "scene", "synopsis", "summary", "recap", "notes", "note",
	"npc", "npcs", "party", "dm", "gm", "player", "players", "pc", "pcs", "locations", "items",
	"quests", "loot", "overview", "epilogue", "prologue", "todo",
	// calendar
	"day", "night", "morning", "evening", "today", "tomorrow", "yesterday",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
}

// defaultCompletionMarkers are section headings whose non-empty presence
// marks a session write-up as complete.
var defaultCompletionMarkers = []string{"synopsis", "summary", "recap", "epilogue", "session end", "conclusion", "aftermath"}

// synopsisHeadings are section headings whose body is the session synopsis.
var synopsisHeadings = []string{"synopsis", "summary", "recap", "overview"}

// rosterHeadings map list-style sections to the entity kind they enumerate.
var rosterHeadings = []struct {
	kind     Kind
	keywords []string
}{
	{KindNPC, []string{"npc", "npcs", "characters", "people", "cast", "persons of interest"}},
	{KindLocation, []string{"locations", "places", "location", "places visited"}},
	{KindItem, []string{"items", "loot", "treasure", "inventory", "equipment", "rewards"}},
	{KindQuest, []string{"quests", "quest", "hooks", "objectives", "quest log", "plot hooks"}},
}

// locationNouns end capitalized place names ("Yawning Portal", "Temple of Tyr").
var locationNouns = []string{
	"Inn", "Tavern", "Temple", "Shrine", "Castle", "Keep", "Tower", "Forest", "Woods",
	"Mountain", "Mountains", "Hills", "Swamp", "Marsh", "Cave", "Caves", "Cavern", "Caverns",
	"Crypt", "Tomb", "Mine", "Mines", "Ruins", "Manor", "Palace", "Market", "Bridge", "Gate",
	"Harbor", "Harbour", "Cathedral", "Abbey", "Monastery", "Sanctum", "Lair", "Dungeon",
	"Citadel", "Fortress", "Village", "Town", "City", "Lake", "River", "Road", "Pass", "Portal",
	"Hall", "Academy", "Library", "Docks", "Ward", "Square", "Isle", "Island", "Vale", "Hollow",
}

// placeOfNouns precede "of <Name>" where the name alone is the place
// ("the city of Waterdeep").
var placeOfNouns = []string{"city", "town", "village", "hamlet", "kingdom", "realm", "port", "island", "isle", "land", "duchy", "barony"}

// itemNouns end item names. Capitalized variants are derived for the
// proper-noun item pattern.
var itemNouns = []string{
	"sword", "blade", "dagger", "axe", "mace", "bow", "crossbow", "spear", "hammer", "warhammer",
	"longsword", "shortsword", "greatsword", "rapier", "scimitar", "halberd", "flail", "trident",
	"staff", "wand", "rod", "ring", "amulet", "necklace", "pendant", "cloak", "boots", "gloves",
	"gauntlets", "bracers", "helm", "helmet", "armor", "armour", "mail", "breastplate", "shield",
	"buckler", "potion", "elixir", "scroll", "tome", "book", "map", "key", "orb", "gem", "crown",
	"chest", "lantern", "idol", "relic", "artifact", "circlet", "talisman", "horn", "lute", "kit",
}

// factionNouns end capitalized organization names ("the Zhentarim",
// "Order of the Gauntlet", "Thieves Guild").
var factionNouns = []string{
	"Guild", "Order", "Harpers", "Zhentarim", "Alliance", "Council", "Church", "Cult", "Company",
	"Brotherhood", "Sisterhood", "Enclave", "Gauntlet", "Watch", "Syndicate", "Clan", "Circle",
	"Legion", "Society", "Court", "Cabal", "League", "Xanathar", "Consortium", "Covenant",
}

// regionNouns end capitalized region names ("Sword Coast", "Dock Ward").
var regionNouns = []string{
	"Coast", "Ward", "District", "Region", "Kingdom", "Realm", "Valley", "Province", "Dale",
	"Dales", "Marches", "Reach", "Isles", "Wilds", "Heartlands", "Frontier", "Empire",
}
