package llm

import (
	"encoding/json"
	"strings"

	"github.com/digkill/gddforge/internal/models"
)

// ParseReply extracts the outermost JSON object from the model's text.
// Text without a decodable object becomes the document body as-is.
func ParseReply(text string) models.GDDResult {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		var out models.GDDResult
		if err := json.Unmarshal([]byte(text[start:end+1]), &out); err == nil && out.DocumentText != "" {
			return out
		}
	}
	return models.GDDResult{DocumentText: text}
}
