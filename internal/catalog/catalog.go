// Package catalog deterministically enumerates every archive page the
// harvester can visit across the known exam taxonomy and date range.
package catalog

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/contestprep/examforge/pkg/problem"
)

// WikiHost is the archive wiki all catalog URLs point at.
const WikiHost = "artofproblemsolving.com"

// ProblemsPerExam is fixed across every exam family in the taxonomy.
const ProblemsPerExam = 25

const (
	amc8StartYear    = 1985
	ajhsmeFinal      = 1998 // the 8th-grade exam carried its older name through this year
	amc1012StartYear = 2000
	lastUnifiedYear  = 2001 // 2000 and 2001 had a single variant instead of A/B
)

// Config bounds the catalog's date range.
type Config struct {
	CurrentYear int `json:"current_year"`
}

// DefaultConfig returns catalog configuration for the present year
func DefaultConfig() *Config {
	return &Config{CurrentYear: time.Now().Year()}
}

// Generate produces the full ordered task list: exam families easy to hard,
// years newest first within a family, variant A before B, problem numbers
// ascending. Partial harvest runs therefore yield the most useful (recent,
// easy-first) content first.
func Generate(cfg *Config) []problem.PrefetchTask {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var tasks []problem.PrefetchTask

	// AMC 8 family, including its pre-1999 name.
	for year := cfg.CurrentYear; year >= amc8StartYear; year-- {
		name := "AMC_8"
		if year <= ajhsmeFinal {
			name = "AJHSME"
		}
		tasks = appendExam(tasks, "AMC8", year, name)
	}

	for year := cfg.CurrentYear; year >= amc1012StartYear; year-- {
		for _, name := range variantNames("AMC_10", year) {
			tasks = appendExam(tasks, "AMC10", year, name)
		}
	}

	for year := cfg.CurrentYear; year >= amc1012StartYear; year-- {
		for _, name := range variantNames("AMC_12", year) {
			tasks = appendExam(tasks, "AMC12", year, name)
		}
	}

	return tasks
}

// variantNames returns the exam names for one family and year, honoring the
// transitional unified-variant years.
func variantNames(base string, year int) []string {
	if year <= lastUnifiedYear {
		return []string{base}
	}
	return []string{base + "A", base + "B"}
}

func appendExam(tasks []problem.PrefetchTask, level string, year int, name string) []problem.PrefetchTask {
	for n := 1; n <= ProblemsPerExam; n++ {
		tasks = append(tasks, problem.PrefetchTask{
			URL:      PageURL(year, name, n),
			ID:       fmt.Sprintf("%s-%d-%d", name, year, n),
			Level:    level,
			Year:     year,
			ExamType: name,
		})
	}
	return tasks
}

// PageURL builds the archive wiki URL for one problem page.
func PageURL(year int, examName string, number int) string {
	return fmt.Sprintf("https://%s/wiki/index.php?title=%d_%s_Problems/Problem_%d",
		WikiHost, year, examName, number)
}

// Sample returns n distinct tasks drawn uniformly at random from the full
// catalog, for smoke-testing a harvest setup without walking everything.
func Sample(cfg *Config, n int) []problem.PrefetchTask {
	all := Generate(cfg)
	if n >= len(all) {
		return all
	}
	sample := make([]problem.PrefetchTask, 0, n)
	for _, i := range rand.Perm(len(all))[:n] {
		sample = append(sample, all[i])
	}
	return sample
}
