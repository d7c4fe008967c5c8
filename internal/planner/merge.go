// Package planner merges per-chunk LLM output into a single ordered
// study plan: tier and priority normalization, global title
// deduplication, and a deterministic total order.
package planner

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gorm.io/datatypes"

	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

// Candidate is one study unit as proposed by the model for a single
// chunk, before normalization.
type Candidate struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	KeyConcepts      []string `json:"key_concepts"`
	Category         string   `json:"category"`
	Tier             string   `json:"importance_tier"`
	PriorityScore    *float64 `json:"priority_score"`
	ExamRelevance    string   `json:"exam_relevance"`
	FromExamSource   bool     `json:"from_exam_source"`
	MentionedInNotes bool     `json:"mentioned_in_notes"`
}

// Default priority substituted when the model omits or mangles the
// score, per tier.
var tierDefaultPriority = map[string]int{
	types.TierCore:      90,
	types.TierHighYield: 70,
	types.TierStretch:   40,
}

var tierRank = map[string]int{
	types.TierCore:      0,
	types.TierHighYield: 1,
	types.TierStretch:   2,
}

// ParseChunkItems extracts a candidate array from raw model text. The
// model is asked for a JSON array but replies sometimes arrive fenced
// or wrapped in prose, so the parser hunts for the outermost brackets.
// A chunk whose reply cannot be parsed degrades to a single synthetic
// fallback item instead of failing the whole job.
func ParseChunkItems(raw string, chunkIndex int) []Candidate {
	if items, err := parseCandidates(raw); err == nil && len(items) > 0 {
		return items
	}
	return []Candidate{fallbackCandidate(chunkIndex)}
}

// StripJSONArray cuts the outermost JSON array out of model text,
// tolerating code fences and surrounding prose. Returns "" when there
// is no array to cut.
func StripJSONArray(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start < 0 || end <= start {
		return ""
	}
	return cleaned[start : end+1]
}

func parseCandidates(raw string) ([]Candidate, error) {
	cleaned := StripJSONArray(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	var items []Candidate
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}

	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Title) == "" {
			continue
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("model output had no usable items")
	}
	return out, nil
}

func fallbackCandidate(chunkIndex int) Candidate {
	return Candidate{
		Title:       fmt.Sprintf("Review section %d", chunkIndex+1),
		Description: "This part of the material could not be broken into topics automatically. Review it directly.",
		Tier:        types.TierCore,
	}
}

// NormalizeTier maps arbitrary model output onto the three known tiers.
// Anything unrecognized lands on core so it is never under-prioritized.
func NormalizeTier(tier string) string {
	switch strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(tier)), "_", "-"), " ", "-") {
	case types.TierHighYield, "highyield":
		return types.TierHighYield
	case types.TierStretch:
		return types.TierStretch
	default:
		return types.TierCore
	}
}

// NormalizePriority clamps to [0,100]; absent or non-numeric scores take
// the tier default.
func NormalizePriority(score *float64, tier string) int {
	if score == nil || math.IsNaN(*score) || math.IsInf(*score, 0) {
		return tierDefaultPriority[tier]
	}
	v := int(math.Round(*score))
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func normalizeExamRelevance(rel string) string {
	switch strings.ToLower(strings.TrimSpace(rel)) {
	case types.ExamRelevanceHigh:
		return types.ExamRelevanceHigh
	case types.ExamRelevanceMedium:
		return types.ExamRelevanceMedium
	case types.ExamRelevanceLow:
		return types.ExamRelevanceLow
	default:
		return ""
	}
}

// Merge folds all chunks' candidates into one globally ordered plan.
// Duplicate titles (case-insensitive, trimmed) are dropped after their
// first occurrence; ordering is tier rank, then priority descending,
// then discovery order, which makes the output deterministic for
// identical inputs. Order indexes are reassigned densely from zero.
// The result is never empty.
func Merge(chunks [][]Candidate) []*types.StudyPlanEntry {
	type ranked struct {
		entry     *types.StudyPlanEntry
		tierRank  int
		discovery int
	}

	var merged []ranked
	seen := map[string]bool{}
	discovery := 0

	for _, chunk := range chunks {
		for _, cand := range chunk {
			title := strings.TrimSpace(cand.Title)
			if title == "" {
				continue
			}
			key := strings.ToLower(title)
			if seen[key] {
				discovery++
				continue
			}
			seen[key] = true

			tier := NormalizeTier(cand.Tier)
			entry := &types.StudyPlanEntry{
				Title:            title,
				Description:      strings.TrimSpace(cand.Description),
				Category:         strings.TrimSpace(cand.Category),
				ImportanceTier:   tier,
				PriorityScore:    NormalizePriority(cand.PriorityScore, tier),
				ExamRelevance:    normalizeExamRelevance(cand.ExamRelevance),
				FromExamSource:   cand.FromExamSource,
				MentionedInNotes: cand.MentionedInNotes,
			}
			if len(cand.KeyConcepts) > 0 {
				if b, err := json.Marshal(cand.KeyConcepts); err == nil {
					entry.KeyConcepts = datatypes.JSON(b)
				}
			}
			merged = append(merged, ranked{entry: entry, tierRank: tierRank[tier], discovery: discovery})
			discovery++
		}
	}

	if len(merged) == 0 {
		// Should not happen given the per-chunk fallback, but downstream
		// consumers must never see an empty plan.
		merged = append(merged, ranked{
			entry: &types.StudyPlanEntry{
				Title:          "General review",
				Description:    "Review the uploaded material end to end.",
				ImportanceTier: types.TierCore,
				PriorityScore:  tierDefaultPriority[types.TierCore],
			},
		})
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.tierRank != b.tierRank {
			return a.tierRank < b.tierRank
		}
		if a.entry.PriorityScore != b.entry.PriorityScore {
			return a.entry.PriorityScore > b.entry.PriorityScore
		}
		return a.discovery < b.discovery
	})

	out := make([]*types.StudyPlanEntry, len(merged))
	for i, m := range merged {
		m.entry.OrderIndex = i
		out[i] = m.entry
	}
	return out
}
