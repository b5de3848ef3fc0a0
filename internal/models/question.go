// internal/models/question.go
package models

import (
	"encoding/json"
	"strings"
)

// QuestionCategory groups questions by the information they collect.
type QuestionCategory string

const (
	CategoryFormat    QuestionCategory = "format"
	CategoryPlatform  QuestionCategory = "platform"
	CategoryDuration  QuestionCategory = "duration"
	CategoryRhythm    QuestionCategory = "rhythm"
	CategoryTone      QuestionCategory = "tone"
	CategoryMusic     QuestionCategory = "music"
	CategoryVoiceOver QuestionCategory = "voice_over"
	CategorySubtitles QuestionCategory = "subtitles"
	CategoryEnding    QuestionCategory = "ending"
	CategoryStyle     QuestionCategory = "style"
	CategoryTechnical QuestionCategory = "technical"
)

// AnswerType enumerates how a question is answered.
type AnswerType string

const (
	AnswerSingleChoice   AnswerType = "single_choice"
	AnswerMultipleChoice AnswerType = "multiple_choice"
	AnswerText           AnswerType = "text"
	AnswerNumber         AnswerType = "number"
)

// Dependency gates a question on a previously given answer. The question is
// only asked when the answer for QuestionID contains Expected.
type Dependency struct {
	QuestionID string `json:"question_id"`
	Expected   string `json:"expected"`
}

// Satisfied reports whether the gating answer is present and matches.
func (d *Dependency) Satisfied(answers AnswerSet) bool {
	value, ok := answers[d.QuestionID]
	if !ok {
		return false
	}
	return value.Contains(d.Expected)
}

// Question is one clarifying question generated for a session. Questions are
// instantiated from a static catalog and never mutated afterwards.
type Question struct {
	ID        string           `json:"id"`
	Category  QuestionCategory `json:"category"`
	Question  string           `json:"question"`
	Type      AnswerType       `json:"type"`
	Options   []string         `json:"options,omitempty"`
	Required  bool             `json:"required"`
	HelpText  string           `json:"help_text,omitempty"`
	DependsOn *Dependency      `json:"depends_on,omitempty"`
}

// AnswerValue holds a single answer: either one string or a list of strings
// for multiple-choice questions.
type AnswerValue struct {
	Text string
	List []string
}

// UnmarshalJSON accepts both a JSON string and a JSON string array.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Text = s
		v.List = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	v.List = list
	v.Text = ""
	return nil
}

// MarshalJSON renders the value in the shape it was supplied.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.List != nil {
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Text)
}

// String returns the single value, or the joined list for multi-answers.
func (v AnswerValue) String() string {
	if v.List != nil {
		return strings.Join(v.List, ", ")
	}
	return v.Text
}

// Contains reports whether any component of the value contains substr
// (case-sensitive, matching the catalog's option spellings).
func (v AnswerValue) Contains(substr string) bool {
	if v.List != nil {
		for _, item := range v.List {
			if strings.Contains(item, substr) {
				return true
			}
		}
		return false
	}
	return strings.Contains(v.Text, substr)
}

// ContainsFold is Contains with case-insensitive matching.
func (v AnswerValue) ContainsFold(substr string) bool {
	lower := strings.ToLower(substr)
	if v.List != nil {
		for _, item := range v.List {
			if strings.Contains(strings.ToLower(item), lower) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(v.Text), lower)
}

// AnswerSet maps question ids to supplied answers. It grows monotonically
// within a session; answers are never removed.
type AnswerSet map[string]AnswerValue

// Get returns the string form of an answer, or empty when unanswered.
func (a AnswerSet) Get(questionID string) string {
	if value, ok := a[questionID]; ok {
		return value.String()
	}
	return ""
}

// Has reports whether the question has a recorded answer.
func (a AnswerSet) Has(questionID string) bool {
	_, ok := a[questionID]
	return ok
}

// Clone returns a shallow copy so callers can hand out a stable snapshot.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
