package problem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOption(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain letter", "C", "C"},
		{"lowercase", "b", "B"},
		{"parenthesized", "(D)", "D"},
		{"surrounding prose", "The answer is E.", "E"},
		{"no letter", "42", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeOption(tt.input))
		})
	}
}

func TestClampDifficulty(t *testing.T) {
	assert.Equal(t, 1, ClampDifficulty(-3))
	assert.Equal(t, 1, ClampDifficulty(0))
	assert.Equal(t, 5, ClampDifficulty(5))
	assert.Equal(t, 10, ClampDifficulty(10))
	assert.Equal(t, 10, ClampDifficulty(99))
}

func validProblem() *Problem {
	return &Problem{
		ID:            "AMC_10A-2023-5",
		Source:        SourceArchive,
		QuestionHTML:  "<p>How many?</p>",
		SolutionHTML:  "<p>Three.</p>",
		Options:       OptionLetters,
		CorrectOption: "C",
		Difficulty:    PlaceholderDifficulty,
	}
}

func TestProblemValidate(t *testing.T) {
	assert.NoError(t, validProblem().Validate())

	p := validProblem()
	p.ID = ""
	assert.Error(t, p.Validate())

	p = validProblem()
	p.Source = "scraped"
	assert.Error(t, p.Validate())

	p = validProblem()
	p.Options = []string{"A", "B"}
	assert.Error(t, p.Validate())

	p = validProblem()
	p.CorrectOption = "(c)"
	assert.Error(t, p.Validate())

	// Unknown answer is a legal state.
	p = validProblem()
	p.CorrectOption = ""
	assert.NoError(t, p.Validate())

	p = validProblem()
	p.Difficulty = 11
	assert.Error(t, p.Validate())
}
