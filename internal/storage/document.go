package storage

import (
	"strings"

	"github.com/digkill/gddforge/internal/models"
)

// RenderMarkdown assembles the downloadable document: the GDD body, then the
// flow diagram and the balance table when the model produced them.
func RenderMarkdown(gameName string, res models.GDDResult) []byte {
	var sb strings.Builder
	if !strings.HasPrefix(strings.TrimSpace(res.DocumentText), "#") && gameName != "" {
		sb.WriteString("# ")
		sb.WriteString(gameName)
		sb.WriteString(" - Game Design Document\n\n")
	}
	sb.WriteString(strings.TrimSpace(res.DocumentText))
	sb.WriteString("\n")

	if d := strings.TrimSpace(res.DiagramSource); d != "" {
		sb.WriteString("\n## Game Flow\n\n```mermaid\n")
		sb.WriteString(d)
		sb.WriteString("\n```\n")
	}
	if t := strings.TrimSpace(res.TableMarkup); t != "" {
		sb.WriteString("\n## Balance Table\n\n")
		sb.WriteString(t)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}
