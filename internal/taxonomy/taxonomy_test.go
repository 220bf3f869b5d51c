package taxonomy

import "testing"

func TestCanonicalAliases(t *testing.T) {
	tests := []struct {
		label string
		want  Section
	}{
		{"buying", Buying},
		{"buying-process", Buying},
		{"process", Buying},
		{"Buying-Process", Buying},
		{"  COMPETITORS  ", Competition},
		{"case-studies", Success},
		{"target-market", ICP},
		{"documents", Collateral},
		{"tone-of-voice", Tone},
		{"faq", Objections},
	}
	for _, tt := range tests {
		if got := Canonical(tt.label); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestCanonicalSelfAliasFallback(t *testing.T) {
	got := Canonical("Quarterly-Notes")
	if got != Section("quarterly-notes") {
		t.Errorf("Canonical fallback = %q, want %q", got, "quarterly-notes")
	}
	if Known(got) {
		t.Errorf("unrecognized label should not be a known section")
	}
	if w := SectionWeight(got); w != 0 {
		t.Errorf("unknown section weight = %v, want 0", w)
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	for _, label := range []string{"buying-process", "success", "random-thing", "ICP-Intelligence"} {
		once := Canonical(label)
		twice := Canonical(string(once))
		if once != twice {
			t.Errorf("Canonical(%q) not idempotent: %q then %q", label, once, twice)
		}
	}
}

func TestGroupWeightsSumTo100(t *testing.T) {
	var total float64
	for _, g := range Groups {
		total += g.Weight
	}
	if total != 100 {
		t.Errorf("group weights sum to %v, want 100", total)
	}
}

func TestSectionWeight(t *testing.T) {
	tests := []struct {
		section Section
		want    float64
	}{
		{Company, 12.5},
		{Messaging, 12.5},
		{Pricing, 25.0 / 3},
		{Objections, 5},
		{Tone, 10.0 / 3},
	}
	for _, tt := range tests {
		if got := SectionWeight(tt.section); got != tt.want {
			t.Errorf("SectionWeight(%q) = %v, want %v", tt.section, got, tt.want)
		}
	}
}

func TestIsVariety(t *testing.T) {
	for _, s := range []Section{Messaging, Objections, Success, Personas} {
		if !IsVariety(s) {
			t.Errorf("IsVariety(%q) = false, want true", s)
		}
	}
	for _, s := range []Section{Company, Products, ICP, Pricing, Competition, Buying, Tone, Collateral, Compliance} {
		if IsVariety(s) {
			t.Errorf("IsVariety(%q) = true, want false", s)
		}
	}
}

func TestDisplayNameResolvesAliases(t *testing.T) {
	if got := DisplayName("buying-process"); got != "Buying Process" {
		t.Errorf("DisplayName(buying-process) = %q", got)
	}
	if got := DisplayName("unheard-of"); got != "unheard-of" {
		t.Errorf("DisplayName(unheard-of) = %q", got)
	}
}

func TestGroupOf(t *testing.T) {
	g, ok := GroupOf(Success)
	if !ok || g.Name != "Customer Intelligence" {
		t.Errorf("GroupOf(success) = %+v, %v", g, ok)
	}
	if _, ok := GroupOf(Section("nope")); ok {
		t.Error("GroupOf(nope) should not resolve")
	}
}
