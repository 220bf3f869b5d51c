package taxonomy

import "strings"

// Section is a canonical knowledge category key.
type Section string

const (
	Company     Section = "company"
	Products    Section = "products"
	ICP         Section = "icp"
	Messaging   Section = "messaging"
	Competition Section = "competition"
	Pricing     Section = "pricing"
	Buying      Section = "buying"
	Personas    Section = "personas"
	Objections  Section = "objections"
	Success     Section = "success"
	Tone        Section = "tone"
	Collateral  Section = "collateral"
	Compliance  Section = "compliance"
)

// Group is a weighted cluster of sections. A group's weight is its
// share of the overall completeness score, in percentage points,
// split evenly among its sections.
type Group struct {
	Name     string
	Weight   float64
	Sections []Section
}

// Groups lists the four scoring groups in display order.
var Groups = []Group{
	{Name: "Foundation", Weight: 50, Sections: []Section{Company, Products, ICP, Messaging}},
	{Name: "GTM Strategy", Weight: 25, Sections: []Section{Competition, Pricing, Buying}},
	{Name: "Customer Intelligence", Weight: 15, Sections: []Section{Personas, Objections, Success}},
	{Name: "Execution Assets", Weight: 10, Sections: []Section{Tone, Collateral, Compliance}},
}

// aliases maps each canonical section to the raw labels that resolve
// to it. The canonical key itself is always listed first. Matching is
// case-insensitive.
var aliases = map[Section][]string{
	Company:     {"company", "company-info", "about", "about-us"},
	Products:    {"products", "product", "features", "product-info"},
	ICP:         {"icp", "icp-intelligence", "target-market", "ideal-customer"},
	Messaging:   {"messaging", "value-props", "positioning"},
	Competition: {"competition", "competitors", "competitive-intelligence", "battlecards"},
	Pricing:     {"pricing", "price", "plans"},
	Buying:      {"buying", "buying-process", "process", "sales-process"},
	Personas:    {"personas", "persona", "buyer-personas"},
	Objections:  {"objections", "objection-handling", "faq"},
	Success:     {"success", "success-stories", "case-studies", "testimonials"},
	Tone:        {"tone", "tone-of-voice", "voice", "style-guide"},
	Collateral:  {"collateral", "documents", "sales-collateral", "general"},
	Compliance:  {"compliance", "legal", "security"},
}

var displayNames = map[Section]string{
	Company:     "Company Info",
	Products:    "Products & Features",
	ICP:         "Target Market (ICP)",
	Messaging:   "Messaging & Value Props",
	Competition: "Competitive Intelligence",
	Pricing:     "Pricing & Plans",
	Buying:      "Buying Process",
	Personas:    "Buyer Personas",
	Objections:  "Objection Handling",
	Success:     "Success Stories",
	Tone:        "Tone of Voice",
	Collateral:  "Sales Collateral",
	Compliance:  "Compliance & Legal",
}

// varietySections benefit from breadth: one artifact is useful but
// partial, two or more complete the section. All other known sections
// are complete with a single artifact.
var varietySections = map[Section]bool{
	Messaging:  true,
	Objections: true,
	Success:    true,
	Personas:   true,
}

// Canonical resolves a raw section label to its canonical section.
// Lookup is case-insensitive over every canonical section's alias
// list in group order, returning the first match. An unrecognized
// label is its own canonical section, so ingestion and scoring agree
// on the grouping even for labels the taxonomy does not know.
func Canonical(label string) Section {
	needle := strings.ToLower(strings.TrimSpace(label))
	for _, g := range Groups {
		for _, s := range g.Sections {
			for _, a := range aliases[s] {
				if a == needle {
					return s
				}
			}
		}
	}
	return Section(needle)
}

// Known reports whether s is part of the weighted taxonomy.
func Known(s Section) bool {
	_, ok := aliases[s]
	return ok
}

// IsVariety reports whether s scores on the variety ladder.
func IsVariety(s Section) bool {
	return varietySections[s]
}

// GroupOf returns the group containing s.
func GroupOf(s Section) (Group, bool) {
	for _, g := range Groups {
		for _, gs := range g.Sections {
			if gs == s {
				return g, true
			}
		}
	}
	return Group{}, false
}

// SectionWeight returns s's share of the overall score in percentage
// points: its group's weight divided evenly among the group's
// sections. Sections outside the taxonomy weigh zero.
func SectionWeight(s Section) float64 {
	g, ok := GroupOf(s)
	if !ok {
		return 0
	}
	return g.Weight / float64(len(g.Sections))
}

// DisplayName returns the human-readable label for a section,
// canonicalizing first so any alias renders under its section's name.
// Unknown sections render as their raw label.
func DisplayName(label string) string {
	s := Canonical(label)
	if name, ok := displayNames[s]; ok {
		return name
	}
	return string(s)
}
