package scoring

import (
	"sort"

	"github.com/kbready/kbready/internal/taxonomy"
)

// Recommendation is one improvement action: what to add to a section
// and what it buys.
type Recommendation struct {
	Section    taxonomy.Section `json:"section"`
	Label      string           `json:"label"`
	Count      int              `json:"count"`
	Milestone  int              `json:"milestone"`
	DocsNeeded int              `json:"docs_needed"`
	Gain       float64          `json:"gain"`
}

// varietyLadder is the milestone sequence for variety sections. Other
// sections jump straight to 100.
var varietyLadder = []int{40, 70, 100}

func recommend(s taxonomy.Section, count, score int, weight float64) Recommendation {
	milestone := nextMilestone(s, score)
	return Recommendation{
		Section:    s,
		Label:      taxonomy.DisplayName(string(s)),
		Count:      count,
		Milestone:  milestone,
		DocsNeeded: docsNeeded(s, count, milestone),
		Gain:       weight * float64(milestone-score) / 100,
	}
}

// nextMilestone returns the first milestone above the current score.
func nextMilestone(s taxonomy.Section, score int) int {
	if taxonomy.IsVariety(s) {
		for _, m := range varietyLadder {
			if m > score {
				return m
			}
		}
	}
	return 100
}

// docsNeeded returns how many more documents reach the milestone. A
// variety section needs two documents for 100 and one for anything
// below; every other section needs one.
func docsNeeded(s taxonomy.Section, count, milestone int) int {
	required := 1
	if taxonomy.IsVariety(s) && milestone == 100 {
		required = 2
	}
	needed := required - count
	if needed < 1 {
		needed = 1
	}
	return needed
}

// sortRecommendations orders actions by descending gain, then
// ascending section weight so equally impactful small sections rank
// as quicker wins, then by section key for stable output.
func sortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Gain != recs[j].Gain {
			return recs[i].Gain > recs[j].Gain
		}
		wi := taxonomy.SectionWeight(recs[i].Section)
		wj := taxonomy.SectionWeight(recs[j].Section)
		if wi != wj {
			return wi < wj
		}
		return recs[i].Section < recs[j].Section
	})
}
