// Package scoring computes the knowledge base completeness score: a
// 0-100 measure of how ready the current inventory is for an AI sales
// agent, plus a ranked list of improvement actions. Score is a pure
// function of its inputs and performs no I/O.
package scoring

import (
	"math"

	"github.com/kbready/kbready/internal/taxonomy"
)

// Artifact is the slice of a committed knowledge document the scorer
// reads. Section may be any raw label; the scorer canonicalizes it.
type Artifact struct {
	ID      string
	Section string
	Tags    []string
}

// SectionScore is one section's standing within its group.
type SectionScore struct {
	Section taxonomy.Section `json:"section"`
	Label   string           `json:"label"`
	Count   int              `json:"count"`
	Score   int              `json:"score"`
	Weight  float64          `json:"weight"`
}

// CategoryScore is one group's earned share of the overall score.
type CategoryScore struct {
	Group    string         `json:"group"`
	Earned   float64        `json:"earned"`
	Weight   float64        `json:"weight"`
	Sections []SectionScore `json:"sections"`
}

// Report is the result of one completeness evaluation.
type Report struct {
	OverallScore    int              `json:"overall_score"`
	Bonus           float64          `json:"bonus"`
	CategoryScores  []CategoryScore  `json:"category_scores"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Score evaluates the inventory snapshot. icpProfiles is the count of
// structured ICP profiles; documents filed or tagged under the icp
// section count toward that section as well.
func Score(artifacts []Artifact, icpProfiles int) Report {
	counts := make(map[taxonomy.Section]int)
	icpDocs := 0
	for _, a := range artifacts {
		s := taxonomy.Canonical(a.Section)
		counts[s]++
		if s == taxonomy.ICP {
			icpDocs++
			continue
		}
		for _, tag := range a.Tags {
			if taxonomy.Canonical(tag) == taxonomy.ICP {
				icpDocs++
				break
			}
		}
	}

	icpTotal := icpProfiles + icpDocs

	var total float64
	categories := make([]CategoryScore, 0, len(taxonomy.Groups))
	var recs []Recommendation
	for _, g := range taxonomy.Groups {
		cat := CategoryScore{Group: g.Name, Weight: g.Weight}
		for _, s := range g.Sections {
			n := counts[s]
			if s == taxonomy.ICP {
				n = icpTotal
			}
			score := sectionScore(s, n)
			weight := taxonomy.SectionWeight(s)
			cat.Sections = append(cat.Sections, SectionScore{
				Section: s,
				Label:   taxonomy.DisplayName(string(s)),
				Count:   n,
				Score:   score,
				Weight:  weight,
			})
			cat.Earned += weight * float64(score) / 100
			if score < 100 {
				recs = append(recs, recommend(s, n, score, weight))
			}
		}
		total += cat.Earned
		categories = append(categories, cat)
	}

	bonus := icpBonus(icpTotal)

	overall := int(math.Round(total + bonus))
	if overall > 100 {
		overall = 100
	}
	if overall < 0 {
		overall = 0
	}

	sortRecommendations(recs)

	return Report{
		OverallScore:    overall,
		Bonus:           bonus,
		CategoryScores:  categories,
		Recommendations: recs,
	}
}

// sectionScore applies the per-section policy: zero artifacts score 0;
// variety sections score 70 with one artifact and 100 with two or
// more; every other section is complete with a single artifact.
func sectionScore(s taxonomy.Section, n int) int {
	switch {
	case n == 0:
		return 0
	case taxonomy.IsVariety(s) && n == 1:
		return 70
	default:
		return 100
	}
}

// icpBonus rewards covering more than one customer segment, capped at
// 4 points.
func icpBonus(icpTotal int) float64 {
	if icpTotal <= 1 {
		return 0
	}
	bonus := float64(icpTotal-1) * 2
	if bonus > 4 {
		bonus = 4
	}
	return bonus
}
