// Package reconcile merges a stored (live) lead form configuration with the
// code-defined baseline so that canonical questions pick up new wording and
// options while site-specific ordering and custom questions survive.
package reconcile

import (
	"fmt"
	"sort"

	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/leadform/scoring"
)

// customOrder is the order assumed for custom questions stored without one.
const customOrder = 999

// TypeConflict records a live question whose type disagreed with the baseline.
type TypeConflict struct {
	ID           domain.QuestionID   `json:"id"`
	LiveType     domain.QuestionType `json:"liveType"`
	BaselineType domain.QuestionType `json:"baselineType"`
}

// Report describes what a merge changed.
type Report struct {
	Adopted                []domain.QuestionID `json:"adopted"`
	Appended               []domain.QuestionID `json:"appended"`
	RemovedStrays          []domain.QuestionID `json:"removedStrays"`
	Custom                 []domain.QuestionID `json:"custom"`
	DroppedDuplicates      []domain.QuestionID `json:"droppedDuplicates"`
	TypeConflicts          []TypeConflict      `json:"typeConflicts"`
	ThresholdsFromBaseline bool                `json:"thresholdsFromBaseline"`
}

// Warnings lists the findings an operator should see.
func (r Report) Warnings() []string {
	var out []string
	for _, c := range r.TypeConflicts {
		out = append(out, fmt.Sprintf("question %q had type %q, baseline type %q applied", c.ID, c.LiveType, c.BaselineType))
	}
	for _, id := range r.DroppedDuplicates {
		out = append(out, fmt.Sprintf("duplicate question %q dropped, first occurrence kept", id))
	}
	return out
}

// Reconcile returns the merged configuration.
func Reconcile(live, baseline domain.FormConfig) domain.FormConfig {
	merged, _ := Merge(live, baseline)
	return merged
}

type entry struct {
	q        domain.Question
	known    bool
	primary  int
	position int
}

// Merge reconciles live against baseline and reports what changed. Neither input
// is modified. Merge never fails: data it does not recognise is kept as a
// custom question.
func Merge(live, baseline domain.FormConfig) (domain.FormConfig, Report) {
	var report Report

	baselineIndex := make(map[domain.QuestionID]int, len(baseline.Questions))
	for i, q := range baseline.Questions {
		if _, dup := baselineIndex[q.ID]; !dup {
			baselineIndex[q.ID] = i
		}
	}

	// Follow-up ids that older schemas stored as standalone questions.
	strays := make(map[domain.QuestionID]bool)
	for _, q := range baseline.Questions {
		if q.ConditionalField == nil {
			continue
		}
		if _, topLevel := baselineIndex[q.ConditionalField.ID]; !topLevel {
			strays[q.ConditionalField.ID] = true
		}
	}

	entries := make([]entry, 0, len(live.Questions)+len(baseline.Questions))
	seen := make(map[domain.QuestionID]bool, len(live.Questions))

	for _, lq := range live.Questions {
		if seen[lq.ID] {
			report.DroppedDuplicates = append(report.DroppedDuplicates, lq.ID)
			continue
		}
		seen[lq.ID] = true

		if strays[lq.ID] {
			report.RemovedStrays = append(report.RemovedStrays, lq.ID)
			continue
		}

		idx, known := baselineIndex[lq.ID]
		if !known {
			primary := lq.Order
			if primary <= 0 {
				primary = customOrder
			}
			entries = append(entries, entry{q: lq.Clone(), primary: primary, position: len(entries)})
			report.Custom = append(report.Custom, lq.ID)
			continue
		}

		sq := baseline.Questions[idx]
		if lq.Type != "" && lq.Type != sq.Type {
			report.TypeConflicts = append(report.TypeConflicts, TypeConflict{ID: lq.ID, LiveType: lq.Type, BaselineType: sq.Type})
		}
		entries = append(entries, entry{q: adopt(lq, sq), known: true, primary: sq.Order, position: idx})
		report.Adopted = append(report.Adopted, lq.ID)
	}

	for i, sq := range baseline.Questions {
		if seen[sq.ID] || baselineIndex[sq.ID] != i {
			continue
		}
		seen[sq.ID] = true
		entries = append(entries, entry{q: sq.Clone(), known: true, primary: sq.Order, position: i})
		report.Appended = append(report.Appended, sq.ID)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.known != b.known {
			return a.known
		}
		if a.primary != b.primary {
			return a.primary < b.primary
		}
		return a.position < b.position
	})

	out := domain.FormConfig{Questions: make([]domain.Question, len(entries))}
	for i, e := range entries {
		e.q.Order = i + 1
		out.Questions[i] = e.q
	}
	out.MaxScore = scoring.MaxScore(out)

	if live.Thresholds.IsZero() {
		out.Thresholds = baseline.Thresholds
		report.ThresholdsFromBaseline = true
	} else {
		out.Thresholds = live.Thresholds
	}

	return out, report
}

// adopt keeps the live question's identity and position and takes everything
// else from the baseline.
func adopt(live, baseline domain.Question) domain.Question {
	s := baseline.Clone()
	return domain.Question{
		ID:               live.ID,
		Order:            live.Order,
		Title:            s.Title,
		Type:             s.Type,
		Required:         s.Required,
		Placeholder:      s.Placeholder,
		Options:          s.Options,
		ConditionalField: s.ConditionalField,
	}
}
