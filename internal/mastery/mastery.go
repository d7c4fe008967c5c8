// Package mastery estimates retention from review history and schedules
// spaced repetition. Every function is pure: callers supply the history
// and the clock, nothing here touches storage. Malformed numeric inputs
// are clamped to sane defaults because these functions also run inline
// on UI-critical read paths.
package mastery

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

// Config collects every tunable used by the engine. Values are
// deliberately configuration, not hidden constants; DefaultConfig is
// the documented baseline.
type Config struct {
	// NeutralScore is returned for an empty history.
	NeutralScore float64
	// DecayPerDay is the multiplicative weight decay applied per day of
	// event age when averaging history.
	DecayPerDay float64
	// HistoryWindow bounds how many recent events are considered.
	HistoryWindow int

	// Per-quality retention values used when an event has no explicit score.
	QualityCorrect   float64
	QualityPartial   float64
	QualityIncorrect float64
	QualitySkipped   float64

	// WeakThreshold marks an entry as weak when its mastery is below it.
	WeakThreshold float64

	// Interval growth parameters.
	BaseInterval time.Duration
	MinInterval  time.Duration
	MaxInterval  time.Duration
	MinEase      float64
	MaxEase      float64
	DefaultEase  float64
	// MaxGrowthReviews caps the exponent so long histories cannot
	// overflow the interval before the MaxInterval clamp applies.
	MaxGrowthReviews int
}

func DefaultConfig() Config {
	return Config{
		NeutralScore:     50,
		DecayPerDay:      0.97,
		HistoryWindow:    50,
		QualityCorrect:   100,
		QualityPartial:   55,
		QualityIncorrect: 10,
		QualitySkipped:   30,
		WeakThreshold:    50,
		BaseInterval:     24 * time.Hour,
		MinInterval:      time.Hour,
		MaxInterval:      180 * 24 * time.Hour,
		MinEase:          1.3,
		MaxEase:          3.0,
		DefaultEase:      2.5,
		MaxGrowthReviews: 20,
	}
}

// ScheduleInput is the per-entry state ComputeNextReviewDate works from.
type ScheduleInput struct {
	MasteryScore float64
	EaseFactor   float64
	ReviewCount  int
}

// ComputeMasteryScore folds the recent review history into a [0,100]
// retention estimate. Newer events weigh exponentially more (DecayPerDay
// per day of age); an event contributes its explicit score when present
// and its quality's configured value otherwise. Empty history yields
// NeutralScore.
func (c Config) ComputeMasteryScore(history []*types.ReviewEvent, now time.Time) float64 {
	events := make([]*types.ReviewEvent, 0, len(history))
	for _, e := range history {
		if e != nil {
			events = append(events, e)
		}
	}
	if len(events) == 0 {
		return clampScore(c.NeutralScore)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ReviewedAt.After(events[j].ReviewedAt)
	})
	if c.HistoryWindow > 0 && len(events) > c.HistoryWindow {
		events = events[:c.HistoryWindow]
	}

	decay := c.DecayPerDay
	if decay <= 0 || decay > 1 || math.IsNaN(decay) {
		decay = DefaultConfig().DecayPerDay
	}

	var weightedSum, weightTotal float64
	for _, e := range events {
		ageDays := now.Sub(e.ReviewedAt).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		w := math.Pow(decay, ageDays)
		weightedSum += w * c.eventValue(e)
		weightTotal += w
	}
	if weightTotal == 0 {
		return clampScore(c.NeutralScore)
	}
	return clampScore(weightedSum / weightTotal)
}

func (c Config) eventValue(e *types.ReviewEvent) float64 {
	if e.Score != nil && !math.IsNaN(*e.Score) && !math.IsInf(*e.Score, 0) {
		return clampScore(*e.Score)
	}
	switch e.ResponseQuality {
	case types.ResponseQualityCorrect:
		return clampScore(c.QualityCorrect)
	case types.ResponseQualityPartial:
		return clampScore(c.QualityPartial)
	case types.ResponseQualityIncorrect:
		return clampScore(c.QualityIncorrect)
	case types.ResponseQualitySkipped:
		return clampScore(c.QualitySkipped)
	default:
		return clampScore(c.NeutralScore)
	}
}

// ComputeNextReviewDate grows the review interval with mastery, ease and
// successful repetition count:
//
//	interval = BaseInterval * ease^min(reviewCount, MaxGrowthReviews) * (0.25 + mastery/100 * 1.75)
//
// clamped to [MinInterval, MaxInterval]. The result is monotonically
// non-decreasing in each input and always strictly after now.
func (c Config) ComputeNextReviewDate(in ScheduleInput, now time.Time) time.Time {
	mastery := clampScore(in.MasteryScore)
	if math.IsNaN(in.MasteryScore) {
		mastery = clampScore(c.NeutralScore)
	}

	ease := in.EaseFactor
	if math.IsNaN(ease) || ease <= 0 {
		ease = c.DefaultEase
	}
	if ease < c.MinEase {
		ease = c.MinEase
	}
	if ease > c.MaxEase {
		ease = c.MaxEase
	}

	count := in.ReviewCount
	if count < 0 {
		count = 0
	}
	if c.MaxGrowthReviews > 0 && count > c.MaxGrowthReviews {
		count = c.MaxGrowthReviews
	}

	growth := math.Pow(ease, float64(count))
	masteryFactor := 0.25 + mastery/100*1.75
	interval := time.Duration(float64(c.BaseInterval) * growth * masteryFactor)

	if interval < c.MinInterval {
		interval = c.MinInterval
	}
	if interval > c.MaxInterval {
		interval = c.MaxInterval
	}
	return now.Add(interval)
}

// NextEaseFactor nudges the ease factor by review outcome, bounded to
// [MinEase, MaxEase]: correct +0.1, partial unchanged, skipped -0.05,
// incorrect -0.15.
func (c Config) NextEaseFactor(current float64, quality string) float64 {
	ease := current
	if math.IsNaN(ease) || ease <= 0 {
		ease = c.DefaultEase
	}
	switch quality {
	case types.ResponseQualityCorrect:
		ease += 0.1
	case types.ResponseQualityIncorrect:
		ease -= 0.15
	case types.ResponseQualitySkipped:
		ease -= 0.05
	}
	if ease < c.MinEase {
		ease = c.MinEase
	}
	if ease > c.MaxEase {
		ease = c.MaxEase
	}
	return ease
}

// GetItemsDueForReview filters to entries whose next review has elapsed.
// A never-reviewed entry (unset next_review_at) is immediately due. Pure
// filter; input order is preserved.
func GetItemsDueForReview(entries []*types.StudyPlanEntry, now time.Time) []*types.StudyPlanEntry {
	var out []*types.StudyPlanEntry
	for _, e := range entries {
		if e == nil {
			continue
		}
		if e.NextReviewAt == nil || !e.NextReviewAt.After(now) {
			out = append(out, e)
		}
	}
	return out
}

// SelectDailyQuizItems assembles a bounded review set. Precedence:
// due-and-weak entries first, then remaining due, then remaining weak,
// then high-priority never-reviewed filler. Within a bucket ordering is
// lowest mastery first, then highest priority, then order index, so the
// selection is deterministic for identical inputs. No entry appears
// twice even when it qualifies under several criteria.
func (c Config) SelectDailyQuizItems(entries []*types.StudyPlanEntry, limit int, now time.Time) []*types.StudyPlanEntry {
	if limit <= 0 {
		return nil
	}

	type scored struct {
		entry  *types.StudyPlanEntry
		bucket int
	}

	var pool []scored
	for _, e := range entries {
		if e == nil {
			continue
		}
		due := e.NextReviewAt == nil || !e.NextReviewAt.After(now)
		weak := e.MasteryScore < c.WeakThreshold
		unseen := e.ReviewCount == 0

		switch {
		case due && weak:
			pool = append(pool, scored{e, 0})
		case due:
			pool = append(pool, scored{e, 1})
		case weak:
			pool = append(pool, scored{e, 2})
		case unseen && e.PriorityScore >= 70:
			pool = append(pool, scored{e, 3})
		}
	}

	sort.Slice(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.bucket != b.bucket {
			return a.bucket < b.bucket
		}
		if a.entry.MasteryScore != b.entry.MasteryScore {
			return a.entry.MasteryScore < b.entry.MasteryScore
		}
		if a.entry.PriorityScore != b.entry.PriorityScore {
			return a.entry.PriorityScore > b.entry.PriorityScore
		}
		return a.entry.OrderIndex < b.entry.OrderIndex
	})

	seen := map[uuid.UUID]bool{}
	var out []*types.StudyPlanEntry
	for _, s := range pool {
		if len(out) >= limit {
			break
		}
		if seen[s.entry.ID] {
			continue
		}
		seen[s.entry.ID] = true
		out = append(out, s.entry)
	}
	return out
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
