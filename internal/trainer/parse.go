package trainer

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/myrjola/pelocoach/internal/errors"
)

// selection is the JSON contract the recommendation prompts ask for.
type selection struct {
	ClassIDs  []string `json:"class_ids"`
	Rationale string   `json:"rationale"`
}

// parseSelection extracts the selection JSON from a model reply. Models
// sometimes wrap the payload in a ```json fence or a triple-quoted block
// despite being asked for bare JSON, so those wrappers are tried in order
// before giving up with ErrParse.
func parseSelection(reply string) (selection, error) {
	trimmed := strings.TrimSpace(reply)

	for _, candidate := range []string{
		trimmed,
		extractDelimited(trimmed, "```json", "```"),
		extractDelimited(trimmed, "```", "```"),
		extractDelimited(trimmed, `"""`, `"""`),
	} {
		if candidate == "" {
			continue
		}
		var sel selection
		if err := json.Unmarshal([]byte(candidate), &sel); err == nil && len(sel.ClassIDs) > 0 {
			return sel, nil
		}
	}

	return selection{}, errors.Wrap(ErrParse, "no selection JSON in reply",
		slog.Int("reply_length", len(reply)))
}

// extractDelimited returns the content between the first open marker and the
// next close marker, or "" when the markers are absent.
func extractDelimited(s, openMarker, closeMarker string) string {
	start := strings.Index(s, openMarker)
	if start < 0 {
		return ""
	}
	rest := s[start+len(openMarker):]
	end := strings.Index(rest, closeMarker)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
