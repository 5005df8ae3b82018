package problem

import (
	"fmt"
	"time"
)

// Source tags where a problem came from and governs which UI affordances
// apply downstream (archive problems carry an image gallery, generated
// problems carry literal option text).
type Source string

const (
	SourceArchive     Source = "archive"
	SourceOnlineMock  Source = "online-mock"
	SourceAIGenerated Source = "ai-generated"
)

// OptionLetters are the positional multiple-choice labels. Archive problems
// embed the option text inside the question markup, so only the labels are
// stored per entry.
var OptionLetters = []string{"A", "B", "C", "D", "E"}

const (
	// PlaceholderDifficulty is assigned at assembly time and replaced by a
	// later batch grading pass.
	PlaceholderDifficulty = 5

	MinDifficulty = 1
	MaxDifficulty = 10
)

// Problem is the normalized record produced by the acquisition pipeline.
// It is immutable once assembled; only the session-scoped fields (Hints,
// SolutionChat, Difficulty after grading) are touched afterwards.
type Problem struct {
	ID            string    `json:"id"`
	Source        Source    `json:"source"`
	OriginalURL   string    `json:"original_url,omitempty"`
	QuestionHTML  string    `json:"question_html"`
	SolutionHTML  string    `json:"solution_html"`
	Images        []string  `json:"images"`
	Options       []string  `json:"options"`
	CorrectOption string    `json:"correct_option"`
	Difficulty    int       `json:"difficulty"`
	Topic         string    `json:"topic,omitempty"`
	Hints         []string  `json:"hints"`
	SolutionChat  []ChatMsg `json:"solution_chat"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatMsg is one turn of the solution-discussion chat.
type ChatMsg struct {
	Role string `json:"role"` // "user" or "tutor"
	Text string `json:"text"`
}

// Validate checks the invariants every assembled problem must satisfy.
func (p *Problem) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("problem ID cannot be empty")
	}
	switch p.Source {
	case SourceArchive, SourceOnlineMock, SourceAIGenerated:
	default:
		return fmt.Errorf("unknown problem source %q", p.Source)
	}
	if p.QuestionHTML == "" {
		return fmt.Errorf("problem question cannot be empty")
	}
	if len(p.Options) != len(OptionLetters) {
		return fmt.Errorf("problem must have exactly %d options, got %d", len(OptionLetters), len(p.Options))
	}
	if p.CorrectOption != NormalizeOption(p.CorrectOption) {
		return fmt.Errorf("correct option %q is not a normalized letter", p.CorrectOption)
	}
	if p.Difficulty < MinDifficulty || p.Difficulty > MaxDifficulty {
		return fmt.Errorf("difficulty %d out of range", p.Difficulty)
	}
	return nil
}

// NormalizeOption reduces an answer designation to a single uppercase letter
// A-E. Anything without such a letter normalizes to the empty string, which
// means "unknown, resolve downstream".
func NormalizeOption(s string) string {
	for _, r := range s {
		if r >= 'A' && r <= 'E' {
			return string(r)
		}
		if r >= 'a' && r <= 'e' {
			return string(r - 'a' + 'A')
		}
	}
	return ""
}

// ClampDifficulty forces an externally assigned difficulty into the 1-10
// scale.
func ClampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// PrefetchTask describes one harvest unit. Tasks are pure values: created by
// the catalog generator, consumed exactly once by the harvester.
type PrefetchTask struct {
	URL      string `json:"url"`
	ID       string `json:"id"`
	Level    string `json:"level"`     // exam family, e.g. "AMC8"
	Year     int    `json:"year"`
	ExamType string `json:"exam_type"` // full exam name including variant, e.g. "AMC_10A"
}

// PrefetchStats are the running counters for one harvest run. They are owned
// by the harvester and reported through the progress callback; they are never
// persisted.
type PrefetchStats struct {
	Total       int    `json:"total"`
	Success     int    `json:"success"`
	Failed      int    `json:"failed"`
	CurrentYear int    `json:"current_year"`
	CurrentExam string `json:"current_exam"`
}

// Processed returns how many tasks have reached a terminal outcome.
func (s PrefetchStats) Processed() int {
	return s.Success + s.Failed
}
