package domain

import (
	"fmt"
	"strings"
)

// Problem is a single configuration invariant violation.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in a configuration.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid form configuration"
	}
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Field+": "+p.Message)
	}
	return "invalid form configuration: " + strings.Join(msgs, "; ")
}

// Validate checks every invariant a configuration must hold before it can be
// stored or scored against. It returns nil or a *ValidationError listing all
// problems, not just the first.
func Validate(cfg FormConfig) error {
	var problems []Problem
	add := func(field, format string, args ...any) {
		problems = append(problems, Problem{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	t := cfg.Thresholds
	if t.Cold < 0 {
		add("thresholds.cold", "must be >= 0")
	}
	if t.Warm < t.Cold {
		add("thresholds.warm", "must be >= cold (%d)", t.Cold)
	}
	if t.Hot < t.Warm {
		add("thresholds.hot", "must be >= warm (%d)", t.Warm)
	}

	if len(cfg.Questions) == 0 {
		add("questions", "at least one question is required")
	}

	topLevel := make(map[QuestionID]int, len(cfg.Questions))
	for i, q := range cfg.Questions {
		if _, dup := topLevel[q.ID]; dup {
			add(fmt.Sprintf("questions[%d].id", i), "duplicate id %q", q.ID)
			continue
		}
		topLevel[q.ID] = i
	}

	conditionalOwners := make(map[QuestionID]QuestionID)
	for i, q := range cfg.Questions {
		field := fmt.Sprintf("questions[%d]", i)

		if !q.ID.Valid() {
			add(field+".id", "invalid id %q", q.ID)
		}
		if strings.TrimSpace(q.Title) == "" {
			add(field+".title", "is required")
		}
		if !q.Type.Known() {
			add(field+".type", "unknown type %q", q.Type)
		}

		if q.IsSelect() {
			if len(q.Options) == 0 {
				add(field+".options", "select questions need at least one option")
			}
		} else if len(q.Options) > 0 {
			add(field+".options", "only select questions may have options")
		}

		seenValues := make(map[string]bool, len(q.Options))
		for j, opt := range q.Options {
			optField := fmt.Sprintf("%s.options[%d]", field, j)
			if strings.TrimSpace(opt.Value) == "" {
				add(optField+".value", "is required")
			}
			if seenValues[opt.Value] {
				add(optField+".value", "duplicate value %q", opt.Value)
			}
			seenValues[opt.Value] = true
			if opt.Points < 0 {
				add(optField+".points", "must be >= 0")
			}
		}

		cf := q.ConditionalField
		if cf == nil {
			continue
		}
		cfField := field + ".conditionalField"
		if !cf.ID.Valid() {
			add(cfField+".id", "invalid id %q", cf.ID)
		}
		if _, collides := topLevel[cf.ID]; collides {
			add(cfField+".id", "collides with question id %q", cf.ID)
		}
		if owner, taken := conditionalOwners[cf.ID]; taken {
			add(cfField+".id", "already used by the follow-up of %q", owner)
		}
		conditionalOwners[cf.ID] = q.ID
		if strings.TrimSpace(cf.Title) == "" {
			add(cfField+".title", "is required")
		}
		if !q.IsSelect() {
			add(cfField, "only select questions may have a conditional field")
		} else if _, ok := q.MatchOption(cf.ShowWhen); !ok {
			add(cfField+".showWhen", "%q does not match any option", cf.ShowWhen)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
