package domain

import "sort"

// Answers maps question ids, conditional follow-up ids included, to the raw
// submitted value.
type Answers map[QuestionID]string

// NewAnswers converts a wire map into Answers. Keys that are not valid
// question ids are skipped and returned sorted so callers can report them.
func NewAnswers(raw map[string]string) (Answers, []string) {
	out := make(Answers, len(raw))
	var invalid []string
	for key, value := range raw {
		id, err := ParseQuestionID(key)
		if err != nil {
			invalid = append(invalid, key)
			continue
		}
		out[id] = value
	}
	sort.Strings(invalid)
	return out, invalid
}

// Raw converts back to a plain string map for storage and transport.
func (a Answers) Raw() map[string]string {
	out := make(map[string]string, len(a))
	for id, value := range a {
		out[string(id)] = value
	}
	return out
}

// Merge returns a new map holding a overlaid with update.
func (a Answers) Merge(update Answers) Answers {
	out := make(Answers, len(a)+len(update))
	for id, value := range a {
		out[id] = value
	}
	for id, value := range update {
		out[id] = value
	}
	return out
}
