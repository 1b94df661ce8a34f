// Package domain holds the lead form configuration model: questions, options,
// conditional follow-up fields, thresholds and the answer map they score.
// Values in this package are plain data; every operation that changes a
// configuration works on a copy.
package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// QuestionID is the stable key joining answers, scoring and reconciliation.
type QuestionID string

var questionIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ParseQuestionID validates raw as a question id.
func ParseQuestionID(raw string) (QuestionID, error) {
	if !questionIDPattern.MatchString(raw) {
		return "", fmt.Errorf("invalid question id %q", raw)
	}
	return QuestionID(raw), nil
}

// Valid reports whether id has the shape ParseQuestionID accepts.
func (id QuestionID) Valid() bool {
	return questionIDPattern.MatchString(string(id))
}

func (id QuestionID) String() string { return string(id) }

// QuestionType is the input kind rendered for a question.
type QuestionType string

const (
	TypeText     QuestionType = "text"
	TypeEmail    QuestionType = "email"
	TypeTel      QuestionType = "tel"
	TypeSelect   QuestionType = "select"
	TypeTextarea QuestionType = "textarea"
	TypeNumber   QuestionType = "number"
)

// Known reports whether t is one of the supported question types.
func (t QuestionType) Known() bool {
	switch t {
	case TypeText, TypeEmail, TypeTel, TypeSelect, TypeTextarea, TypeNumber:
		return true
	}
	return false
}

// Option is one choice of a select question.
type Option struct {
	Value  string `json:"value" yaml:"value"`
	Label  string `json:"label" yaml:"label"`
	Points int    `json:"points" yaml:"points"`
}

// Matches reports whether answer selects this option. Legacy answers stored
// the label instead of the value, so both are accepted.
func (o Option) Matches(answer string) bool {
	return answer == o.Value || answer == o.Label
}

// ConditionalField is a follow-up input shown when the parent answer equals ShowWhen.
type ConditionalField struct {
	ShowWhen    string     `json:"showWhen" yaml:"showWhen"`
	ID          QuestionID `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Placeholder string     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Question is a single step of the form.
type Question struct {
	ID               QuestionID        `json:"id" yaml:"id"`
	Order            int               `json:"order" yaml:"order"`
	Title            string            `json:"title" yaml:"title"`
	Type             QuestionType      `json:"type" yaml:"type"`
	Required         bool              `json:"required" yaml:"required"`
	Placeholder      string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options          []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	ConditionalField *ConditionalField `json:"conditionalField,omitempty" yaml:"conditionalField,omitempty"`
}

// IsSelect reports whether the question is scored.
func (q Question) IsSelect() bool {
	return q.Type == TypeSelect
}

// MatchOption finds the option selected by answer.
func (q Question) MatchOption(answer string) (Option, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Option{}, false
	}
	for _, opt := range q.Options {
		if opt.Matches(answer) {
			return opt, true
		}
	}
	return Option{}, false
}

// MaxPoints is the highest option value, 0 for questions without options.
func (q Question) MaxPoints() int {
	best := 0
	for _, opt := range q.Options {
		if opt.Points > best {
			best = opt.Points
		}
	}
	return best
}

// Clone returns a deep copy of q.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = make([]Option, len(q.Options))
		copy(out.Options, q.Options)
	}
	if q.ConditionalField != nil {
		cf := *q.ConditionalField
		out.ConditionalField = &cf
	}
	return out
}

// Thresholds are the minimum scores for each tier.
type Thresholds struct {
	Hot  int `json:"hot" yaml:"hot"`
	Warm int `json:"warm" yaml:"warm"`
	Cold int `json:"cold" yaml:"cold"`
}

// IsZero reports whether no threshold was set.
func (t Thresholds) IsZero() bool {
	return t.Hot == 0 && t.Warm == 0 && t.Cold == 0
}

// FormConfig is the full questionnaire definition stored per deployment.
type FormConfig struct {
	Questions  []Question `json:"questions" yaml:"questions"`
	MaxScore   int        `json:"maxScore" yaml:"maxScore"`
	Thresholds Thresholds `json:"thresholds" yaml:"thresholds"`
}

// Clone returns a deep copy of c.
func (c FormConfig) Clone() FormConfig {
	out := c
	if c.Questions != nil {
		out.Questions = make([]Question, len(c.Questions))
		for i, q := range c.Questions {
			out.Questions[i] = q.Clone()
		}
	}
	return out
}

// Question looks up a top-level question by id.
func (c FormConfig) Question(id QuestionID) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// AnswerTypes maps every id an answer may be keyed by to its input type.
// Conditional follow-ups are free text.
func (c FormConfig) AnswerTypes() map[QuestionID]QuestionType {
	out := make(map[QuestionID]QuestionType, len(c.Questions)+2)
	for _, q := range c.Questions {
		out[q.ID] = q.Type
		if q.ConditionalField != nil {
			if _, taken := out[q.ConditionalField.ID]; !taken {
				out[q.ConditionalField.ID] = TypeText
			}
		}
	}
	return out
}
