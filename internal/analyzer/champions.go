package analyzer

import (
	"strings"
	"unicode"

	"github.com/rewired-gh/mobatips/internal/models"
)

// Tag is a coarse champion role used to classify compositions.
type Tag string

const (
	TagTank      Tag = "tank"
	TagEngage    Tag = "engage"
	TagDive      Tag = "dive"
	TagCarry     Tag = "carry"
	TagEnchanter Tag = "enchanter"
	TagMage      Tag = "mage"
	TagAssassin  Tag = "assassin"
	TagBruiser   Tag = "bruiser"
)

// Archetype is a recognised team composition.
type Archetype string

const (
	ArchetypeBalanced        Archetype = "balanced"
	ArchetypeDive            Archetype = "dive"
	ArchetypeProtectTheCarry Archetype = "protect_the_carry"
)

var archetypeBonus = map[Archetype]float64{
	ArchetypeBalanced:        0.02,
	ArchetypeDive:            0.015,
	ArchetypeProtectTheCarry: 0.02,
}

// draftNormalization maps a composite winrate edge onto [-1, 1].
const draftNormalization = 0.05

const defaultWinrate = 0.5

// ChampionInfo is one row of the champion table.
type ChampionInfo struct {
	Winrate float64
	Tags    []Tag
}

var builtinChampions = map[string]ChampionInfo{
	"aatrox":   {0.497, []Tag{TagBruiser, TagDive}},
	"ahri":     {0.512, []Tag{TagMage, TagAssassin}},
	"alistar":  {0.495, []Tag{TagTank, TagEngage}},
	"aphelios": {0.486, []Tag{TagCarry}},
	"ashe":     {0.508, []Tag{TagCarry, TagEngage}},
	"azir":     {0.478, []Tag{TagMage}},
	"braum":    {0.503, []Tag{TagTank, TagEnchanter}},
	"camille":  {0.505, []Tag{TagBruiser, TagDive}},
	"corki":    {0.494, []Tag{TagMage, TagCarry}},
	"diana":    {0.511, []Tag{TagAssassin, TagDive}},
	"gnar":     {0.489, []Tag{TagBruiser, TagEngage}},
	"gragas":   {0.498, []Tag{TagTank, TagEngage}},
	"jarvaniv": {0.507, []Tag{TagBruiser, TagEngage, TagDive}},
	"jayce":    {0.483, []Tag{TagBruiser}},
	"jinx":     {0.515, []Tag{TagCarry}},
	"kaisa":    {0.499, []Tag{TagCarry, TagDive}},
	"kalista":  {0.481, []Tag{TagCarry}},
	"karma":    {0.496, []Tag{TagEnchanter, TagMage}},
	"ksante":   {0.476, []Tag{TagTank, TagDive}},
	"leesin":   {0.493, []Tag{TagDive, TagAssassin}},
	"leona":    {0.506, []Tag{TagTank, TagEngage}},
	"lulu":     {0.509, []Tag{TagEnchanter}},
	"maokai":   {0.513, []Tag{TagTank, TagEngage}},
	"nautilus": {0.502, []Tag{TagTank, TagEngage}},
	"orianna":  {0.501, []Tag{TagMage}},
	"rakan":    {0.504, []Tag{TagEngage, TagEnchanter}},
	"renekton": {0.492, []Tag{TagBruiser, TagDive}},
	"rell":     {0.497, []Tag{TagTank, TagEngage}},
	"sejuani":  {0.508, []Tag{TagTank, TagEngage}},
	"sylas":    {0.488, []Tag{TagMage, TagDive}},
	"syndra":   {0.495, []Tag{TagMage}},
	"taliyah":  {0.503, []Tag{TagMage}},
	"varus":    {0.494, []Tag{TagCarry}},
	"vi":       {0.506, []Tag{TagDive, TagEngage}},
	"viego":    {0.500, []Tag{TagAssassin, TagDive}},
	"xayah":    {0.505, []Tag{TagCarry}},
	"xinzhao":  {0.510, []Tag{TagDive, TagBruiser}},
	"yone":     {0.491, []Tag{TagAssassin, TagDive}},
	"yuumi":    {0.482, []Tag{TagEnchanter}},
	"zeri":     {0.487, []Tag{TagCarry}},
	"zoe":      {0.499, []Tag{TagMage, TagAssassin}},
}

// ChampionTable is a read-only champion winrate and role lookup.
type ChampionTable struct {
	champions map[string]ChampionInfo
}

// NewChampionTable builds the table from the built-in data with winrate overrides applied.
// Overrides for champions missing from the built-in set are added without tags.
func NewChampionTable(overrides map[string]float64) *ChampionTable {
	champions := make(map[string]ChampionInfo, len(builtinChampions)+len(overrides))
	for name, info := range builtinChampions {
		champions[name] = info
	}
	for name, wr := range overrides {
		key := championKey(name)
		info := champions[key]
		info.Winrate = wr
		champions[key] = info
	}
	return &ChampionTable{champions: champions}
}

func championKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Winrate returns the champion's historical winrate, 0.5 if unknown.
func (t *ChampionTable) Winrate(champion string) float64 {
	if info, ok := t.champions[championKey(champion)]; ok && info.Winrate > 0 {
		return info.Winrate
	}
	return defaultWinrate
}

// Tags returns the champion's role tags.
func (t *ChampionTable) Tags(champion string) []Tag {
	return t.champions[championKey(champion)].Tags
}

// AverageWinrate averages the winrates of the given picks, 0.5 for an empty list.
func (t *ChampionTable) AverageWinrate(picks []string) float64 {
	if len(picks) == 0 {
		return defaultWinrate
	}
	var sum float64
	for _, p := range picks {
		sum += t.Winrate(p)
	}
	return sum / float64(len(picks))
}

// Archetypes classifies a composition.
func (t *ChampionTable) Archetypes(picks []string) []Archetype {
	counts := make(map[Tag]int)
	for _, p := range picks {
		for _, tag := range t.Tags(p) {
			counts[tag]++
		}
	}

	var out []Archetype
	frontline := counts[TagTank] + counts[TagEngage]
	if frontline >= 1 && counts[TagCarry] >= 1 && counts[TagMage] >= 1 {
		out = append(out, ArchetypeBalanced)
	}
	if counts[TagDive]+counts[TagAssassin] >= 3 {
		out = append(out, ArchetypeDive)
	}
	if counts[TagCarry] >= 1 && counts[TagEnchanter] >= 1 && counts[TagTank] >= 1 {
		out = append(out, ArchetypeProtectTheCarry)
	}
	return out
}

// CompositionBonus sums the synergy bonuses for the recognised archetypes.
func (t *ChampionTable) CompositionBonus(picks []string) float64 {
	var bonus float64
	for _, a := range t.Archetypes(picks) {
		bonus += archetypeBonus[a]
	}
	return bonus
}

// DraftAdvantage returns team1's draft edge in [-1, 1]; 0 when either side has no picks.
func (t *ChampionTable) DraftAdvantage(d *models.Draft) float64 {
	if d == nil || len(d.Team1Picks) == 0 || len(d.Team2Picks) == 0 {
		return 0
	}
	score1 := t.AverageWinrate(d.Team1Picks) + t.CompositionBonus(d.Team1Picks)
	score2 := t.AverageWinrate(d.Team2Picks) + t.CompositionBonus(d.Team2Picks)
	return clamp((score1-score2)/draftNormalization, -1, 1)
}
