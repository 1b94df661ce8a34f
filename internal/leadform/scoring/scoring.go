// Package scoring computes lead scores and tiers from a form configuration.
// Every function here is pure and safe for concurrent use.
package scoring

import (
	"strings"
	"unicode"

	"skaleclub_backend/internal/leadform/domain"
)

// Result is the outcome of scoring one answer set.
type Result struct {
	Total     int            `json:"total"`
	Breakdown map[string]int `json:"breakdown"`
}

// Score sums the points earned by every select question. Unknown or
// missing answers earn 0; Score never fails.
func Score(answers domain.Answers, cfg domain.FormConfig) Result {
	res := Result{Breakdown: make(map[string]int)}
	for _, q := range cfg.Questions {
		if !q.IsSelect() {
			continue
		}
		points := questionPoints(q, answers)
		res.Breakdown[ScoreKey(q.ID)] = points
		res.Total += points
	}
	return res
}

// questionPoints resolves the points for a single select question.
//
// Selecting the option that reveals a follow-up only counts once the
// follow-up is filled in; the option's own points apply from then on.
func questionPoints(q domain.Question, answers domain.Answers) int {
	answer := answers[q.ID]
	direct, _ := q.MatchOption(answer)

	cf := q.ConditionalField
	if cf == nil {
		return direct.Points
	}

	trigger, ok := q.MatchOption(cf.ShowWhen)
	if !ok || !trigger.Matches(strings.TrimSpace(answer)) {
		return direct.Points
	}

	if strings.TrimSpace(answers[cf.ID]) == "" {
		return 0
	}
	return trigger.Points
}

// Classify maps a score onto a tier. Ties go to the higher tier.
func Classify(score int, t domain.Thresholds) domain.Tier {
	switch {
	case score >= t.Hot:
		return domain.TierHot
	case score >= t.Warm:
		return domain.TierWarm
	case score >= t.Cold:
		return domain.TierCold
	default:
		return domain.TierDisqualified
	}
}

// MaxScore is the highest total an answer set can reach under cfg.
func MaxScore(cfg domain.FormConfig) int {
	return domain.SumMaxPoints(cfg.Questions)
}

// legacyScoreKeys pins the breakdown keys that map onto named lead columns.
var legacyScoreKeys = map[domain.QuestionID]string{
	"localizacao":          "scoreLocalizacao",
	"tipoNegocio":          "scoreTipoNegocio",
	"tempoNegocio":         "scoreTempoNegocio",
	"experienciaMarketing": "scoreExperiencia",
	"orcamentoAnuncios":    "scoreOrcamento",
	"maiorDesafio":         "scoreDesafio",
	"disponibilidade":      "scoreDisponibilidade",
}

// ScoreKey returns the stable breakdown key for a question id.
func ScoreKey(id domain.QuestionID) string {
	if key, ok := legacyScoreKeys[id]; ok {
		return key
	}

	var b strings.Builder
	b.WriteString("score")
	upper := true
	for _, r := range string(id) {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LegacyScoreKeys lists the fixed breakdown keys by question id.
func LegacyScoreKeys() map[domain.QuestionID]string {
	out := make(map[domain.QuestionID]string, len(legacyScoreKeys))
	for id, key := range legacyScoreKeys {
		out[id] = key
	}
	return out
}
