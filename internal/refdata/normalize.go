package refdata

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Alias tables canonicalize the spellings that actually show up in vendor
// sheets. Anything not listed is kept as its own bucket in canonical title
// case rather than collapsed into a catch-all, so unknown markets stay
// distinguishable.
var regionAliases = map[string]string{
	"ne":           "Northeast",
	"northeast":    "Northeast",
	"north east":   "Northeast",
	"se":           "Southeast",
	"southeast":    "Southeast",
	"south east":   "Southeast",
	"mw":           "Midwest",
	"midwest":      "Midwest",
	"mid west":     "Midwest",
	"sw":           "Southwest",
	"southwest":    "Southwest",
	"south west":   "Southwest",
	"w":            "West",
	"west":         "West",
	"west coast":   "West",
	"gulf":         "Gulf Coast",
	"gulf coast":   "Gulf Coast",
	"mid atlantic": "Mid-Atlantic",
	"mid-atlantic": "Mid-Atlantic",
	"midatlantic":  "Mid-Atlantic",
}

var equipmentTypeAliases = map[string]string{
	"crawler":       "Crawler",
	"crawler crane": "Crawler",
	"lattice":       "Crawler",
	"at":            "All-Terrain",
	"all terrain":   "All-Terrain",
	"all-terrain":   "All-Terrain",
	"rt":            "Rough-Terrain",
	"rough terrain": "Rough-Terrain",
	"rough-terrain": "Rough-Terrain",
	"tower":         "Tower",
	"tower crane":   "Tower",
	"truck":         "Truck",
	"truck mounted": "Truck",
	"truck-mounted": "Truck",
	"boom truck":    "Truck",
	"carry deck":    "Carry-Deck",
	"carry-deck":    "Carry-Deck",
	"carrydeck":     "Carry-Deck",
	"telecrawler":   "Telescopic Crawler",
	"tele crawler":  "Telescopic Crawler",
	"tele-crawler":  "Telescopic Crawler",
}

var titleCaser = cases.Title(language.AmericanEnglish)

// NormalizeRegion returns the canonical display form for a region string.
func NormalizeRegion(s string) string {
	return canonicalize(s, regionAliases)
}

// NormalizeEquipmentType returns the canonical display form for an
// equipment type string.
func NormalizeEquipmentType(s string) string {
	return canonicalize(s, equipmentTypeAliases)
}

func canonicalize(s string, aliases map[string]string) string {
	folded := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if folded == "" {
		return ""
	}
	if canon, ok := aliases[folded]; ok {
		return canon
	}
	return titleCaser.String(folded)
}
