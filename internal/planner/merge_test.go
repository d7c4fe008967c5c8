package planner

import (
	"strings"
	"testing"

	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

func fp(v float64) *float64 { return &v }

func TestParseChunkItemsPlainArray(t *testing.T) {
	raw := `[{"title": "Krebs cycle", "importance_tier": "core"}]`
	items := ParseChunkItems(raw, 0)
	if len(items) != 1 || items[0].Title != "Krebs cycle" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestParseChunkItemsFencedWithProse(t *testing.T) {
	raw := "Here you go:\n```json\n[{\"title\": \"Glycolysis\"}]\n```\nLet me know!"
	items := ParseChunkItems(raw, 0)
	if len(items) != 1 || items[0].Title != "Glycolysis" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestParseChunkItemsFallbackOnGarbage(t *testing.T) {
	items := ParseChunkItems("I could not find any topics, sorry.", 2)
	if len(items) != 1 {
		t.Fatalf("expected one fallback item, got %d", len(items))
	}
	if items[0].Title != "Review section 3" {
		t.Fatalf("fallback title should carry the section number, got %q", items[0].Title)
	}
	if items[0].Tier != types.TierCore {
		t.Fatalf("fallback should land on core, got %q", items[0].Tier)
	}
}

func TestNormalizeTier(t *testing.T) {
	cases := map[string]string{
		"core":       types.TierCore,
		"CORE":       types.TierCore,
		"High Yield": types.TierHighYield,
		"high_yield": types.TierHighYield,
		"highyield":  types.TierHighYield,
		"stretch":    types.TierStretch,
		"unknown":    types.TierCore,
		"":           types.TierCore,
	}
	for in, want := range cases {
		if got := NormalizeTier(in); got != want {
			t.Errorf("NormalizeTier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizePriorityDefaults(t *testing.T) {
	if got := NormalizePriority(nil, types.TierCore); got != 90 {
		t.Fatalf("core default = %d, want 90", got)
	}
	if got := NormalizePriority(nil, types.TierHighYield); got != 70 {
		t.Fatalf("high-yield default = %d, want 70", got)
	}
	if got := NormalizePriority(nil, types.TierStretch); got != 40 {
		t.Fatalf("stretch default = %d, want 40", got)
	}
	if got := NormalizePriority(fp(150), types.TierCore); got != 100 {
		t.Fatalf("overflow should clamp to 100, got %d", got)
	}
	if got := NormalizePriority(fp(-5), types.TierCore); got != 0 {
		t.Fatalf("negative should clamp to 0, got %d", got)
	}
}

func TestMergeDedupesTitlesFirstWins(t *testing.T) {
	chunks := [][]Candidate{
		{{Title: "Krebs Cycle", Description: "first", Tier: "core"}},
		{{Title: "  krebs cycle ", Description: "second", Tier: "stretch"}},
	}
	entries := Merge(chunks)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after dedupe, got %d", len(entries))
	}
	if entries[0].Description != "first" {
		t.Fatalf("first occurrence should win, got description %q", entries[0].Description)
	}
	if entries[0].ImportanceTier != types.TierCore {
		t.Fatalf("first occurrence tier should win, got %q", entries[0].ImportanceTier)
	}
}

func TestMergeTierDominatesPriority(t *testing.T) {
	chunks := [][]Candidate{{
		{Title: "stretch topic", Tier: "stretch", PriorityScore: fp(100)},
		{Title: "core topic", Tier: "core", PriorityScore: fp(10)},
	}}
	entries := Merge(chunks)
	if entries[0].Title != "core topic" {
		t.Fatalf("core must sort before stretch regardless of priority, got %q first", entries[0].Title)
	}
}

func TestMergeOrderIndexIsDense(t *testing.T) {
	chunks := [][]Candidate{{
		{Title: "a", Tier: "core"},
		{Title: "b", Tier: "high-yield"},
		{Title: "a", Tier: "core"}, // dropped dupe must not leave a gap
		{Title: "c", Tier: "stretch"},
	}}
	entries := Merge(chunks)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.OrderIndex != i {
			t.Fatalf("entry %d has order index %d", i, e.OrderIndex)
		}
	}
}

func TestMergeStableByDiscoveryWithinTier(t *testing.T) {
	chunks := [][]Candidate{{
		{Title: "first", Tier: "core", PriorityScore: fp(50)},
		{Title: "second", Tier: "core", PriorityScore: fp(50)},
	}}
	entries := Merge(chunks)
	if entries[0].Title != "first" || entries[1].Title != "second" {
		t.Fatalf("ties must keep discovery order, got %q then %q", entries[0].Title, entries[1].Title)
	}
}

func TestMergeNeverEmpty(t *testing.T) {
	entries := Merge([][]Candidate{{}, {}})
	if len(entries) != 1 {
		t.Fatalf("expected the guard entry, got %d entries", len(entries))
	}
	if !strings.Contains(entries[0].Title, "General review") {
		t.Fatalf("unexpected guard title %q", entries[0].Title)
	}
}
