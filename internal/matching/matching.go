package matching

import (
	"sort"

	"gamearbiter/internal/catalog"
	"gamearbiter/internal/region"
	"gamearbiter/internal/titles"
)

// Options tune ranking.
type Options struct {
	Threshold       int
	PreferredRegion string
}

// Candidate is one catalog entry scored against a query.
type Candidate struct {
	Entry       catalog.Entry
	Score       int
	RegionScore int
	Normalized  string
}

// Kind classifies a Pick result.
type Kind int

const (
	None Kind = iota
	Match
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Match:
		return "match"
	case Ambiguous:
		return "ambiguous"
	default:
		return "none"
	}
}

// Decision is the outcome of Pick. Best is set for Match; Choices holds the
// contenders for Ambiguous.
type Decision struct {
	Kind    Kind
	Best    Candidate
	Choices []Candidate
}

// Rank scores every entry, drops those below the threshold and orders the
// rest by score, region desirability and title.
func Rank(query string, entries []catalog.Entry, opts Options) []Candidate {
	out := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		score := titles.Score(query, entry.Title)
		if score < opts.Threshold {
			continue
		}
		out = append(out, Candidate{
			Entry:       entry,
			Score:       score,
			RegionScore: region.Score(entry.Region, opts.PreferredRegion),
			Normalized:  titles.Normalize(entry.Title),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.RegionScore != b.RegionScore {
			return a.RegionScore > b.RegionScore
		}
		return a.Entry.Title < b.Entry.Title
	})
	return out
}

// Pick accepts the top candidate unless a differently titled candidate
// scores within margin of it. Same-title regional variants never compete;
// the ranking already put the preferred region first.
func Pick(candidates []Candidate, margin int) Decision {
	if len(candidates) == 0 {
		return Decision{Kind: None}
	}
	top := candidates[0]
	choices := []Candidate{top}
	seen := map[string]bool{top.Normalized: true}
	for _, c := range candidates[1:] {
		if top.Score-c.Score > margin {
			break
		}
		if seen[c.Normalized] {
			continue
		}
		seen[c.Normalized] = true
		choices = append(choices, c)
	}
	if len(choices) == 1 {
		return Decision{Kind: Match, Best: top}
	}
	return Decision{Kind: Ambiguous, Choices: choices}
}

// Entries extracts the catalog entries from a candidate list.
func Entries(candidates []Candidate) []catalog.Entry {
	out := make([]catalog.Entry, len(candidates))
	for i, c := range candidates {
		out[i] = c.Entry
	}
	return out
}

// Exact wraps identifier hits (serial, alias) as full-score candidates ordered
// by region preference so Pick applies the same ambiguity rule to them.
func Exact(entries []catalog.Entry, preferredRegion string) []Candidate {
	out := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		out = append(out, Candidate{
			Entry:       entry,
			Score:       100,
			RegionScore: region.Score(entry.Region, preferredRegion),
			Normalized:  titles.Normalize(entry.Title),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RegionScore != out[j].RegionScore {
			return out[i].RegionScore > out[j].RegionScore
		}
		return out[i].Entry.Title < out[j].Entry.Title
	})
	return out
}
