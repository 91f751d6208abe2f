package region

import (
	"regexp"
	"strings"
)

// UnknownScore is returned for regions missing from the static table.
const UnknownScore = 10

// PreferredScore is returned when a region equals the preferred region.
const PreferredScore = 100

var desirability = map[string]int{
	"usa":    90,
	"us":     90,
	"ntsc-u": 90,
	"europe": 80,
	"eur":    80,
	"pal":    80,
	"japan":  70,
	"jpn":    70,
	"jp":     70,
	"ntsc-j": 70,
	"world":  60,
	"asia":   50,
}

// Score ranks a catalog region against the preferred region. An exact
// case-insensitive match wins outright; otherwise the universal table applies.
func Score(region, preferred string) int {
	region = strings.TrimSpace(region)
	if region != "" && strings.EqualFold(region, strings.TrimSpace(preferred)) {
		return PreferredScore
	}
	if score, ok := desirability[strings.ToLower(region)]; ok {
		return score
	}
	return UnknownScore
}

// Known reports whether a region name appears in the static table.
func Known(region string) bool {
	_, ok := desirability[strings.ToLower(strings.TrimSpace(region))]
	return ok
}

var parenGroup = regexp.MustCompile(`\(([^()]*)\)`)

// FromFilename extracts the first known region from No-Intro style
// parenthesised tags, e.g. "Game (Japan, USA) (Rev 1).sfc" yields "Japan".
func FromFilename(name string) string {
	for _, match := range parenGroup.FindAllStringSubmatch(name, -1) {
		for _, part := range strings.Split(match[1], ",") {
			part = strings.TrimSpace(part)
			if Known(part) {
				return canonical(part)
			}
		}
	}
	return ""
}

// StripTags removes parenthesised and bracketed tags from a ROM filename stem.
func StripTags(name string) string {
	out := parenGroup.ReplaceAllString(name, " ")
	out = bracketGroup.ReplaceAllString(out, " ")
	return strings.Join(strings.Fields(out), " ")
}

var bracketGroup = regexp.MustCompile(`\[[^\[\]]*\]`)

func canonical(region string) string {
	switch desirability[strings.ToLower(region)] {
	case 90:
		return "USA"
	case 80:
		return "Europe"
	case 70:
		return "Japan"
	case 60:
		return "World"
	case 50:
		return "Asia"
	}
	return region
}
