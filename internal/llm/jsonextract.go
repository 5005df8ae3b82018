package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	codeFenceRe = regexp.MustCompile("```(?:json)?")

	// loneBackslashRe finds backslashes that do not begin a valid JSON
	// escape; model output frequently carries raw LaTeX inside JSON string
	// values.
	loneBackslashRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)
)

// ExtractJSON recovers a JSON payload from free-form model output and
// unmarshals it into out. Models wrap payloads in code fences, prepend
// prose and trail explanations; extraction strips fences, locates the
// outermost brace or bracket pair (whichever opens first) and parses that
// span. If direct parsing fails, a best-effort repair pass escapes lone
// backslashes before one more attempt. The repair is lossy for input that
// was already correctly escaped; callers treat a residual failure as a
// failed generation attempt, not as a crash.
func ExtractJSON(raw string, out any) error {
	cleaned := codeFenceRe.ReplaceAllString(raw, "")

	span, err := jsonSpan(cleaned)
	if err != nil {
		return err
	}

	if json.Unmarshal([]byte(span), out) == nil {
		return nil
	}

	repaired := loneBackslashRe.ReplaceAllString(span, `\\$1`)
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("response is not parseable JSON: %w", err)
	}
	return nil
}

// jsonSpan cuts the outermost {...} or [...] span out of text, preferring
// whichever opener appears first.
func jsonSpan(text string) (string, error) {
	braceStart := strings.Index(text, "{")
	bracketStart := strings.Index(text, "[")

	start, closer := braceStart, "}"
	if braceStart < 0 || (bracketStart >= 0 && bracketStart < braceStart) {
		start, closer = bracketStart, "]"
	}
	if start < 0 {
		return "", fmt.Errorf("no JSON object or array found in response")
	}

	end := strings.LastIndex(text, closer)
	if end <= start {
		return "", fmt.Errorf("unterminated JSON payload in response")
	}
	return text[start : end+1], nil
}
