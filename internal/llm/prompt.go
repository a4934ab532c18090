package llm

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/digkill/gddforge/internal/models"
)

const notSpecified = "Not specified"

var promptTemplate = template.Must(template.New("gdd").Funcs(template.FuncMap{
	"value": orDefault,
	"join":  joinOrDefault,
	"inc":   func(i int) int { return i + 1 },
}).Parse(`You are an expert game designer with 20+ years of experience at AAA studios. Create an extremely detailed, professional Game Design Document (GDD) based on the following information.

## GAME INFORMATION PROVIDED:
- **Game Name:** {{value .GameName}}
- **Tagline:** {{value .Tagline}}
- **Genre:** {{value .Genre}}
- **Platforms:** {{join .Platform}}
- **Target Audience:** {{value .TargetAudience}}
- **ESRB Rating:** {{value .ESRBRating}}
- **Unique Selling Points:** {{value .UniqueSellingPoints}}

### GAMEPLAY
- **Core Mechanics:** {{value .CoreMechanics}}
- **Control Scheme:** {{value .ControlScheme}}
- **Game Loops:** {{value .GameLoops}}
- **Progression System:** {{value .ProgressionSystem}}
- **Difficulty Settings:** {{value .DifficultySettings}}
- **Multiplayer Features:** {{value .MultiplayerFeatures}}

### STORY & NARRATIVE
- **Story Premise:** {{value .StoryPremise}}
- **World Setting:** {{value .WorldSetting}}
- **Main Conflict:** {{value .MainConflict}}
- **Narrative Style:** {{value .NarrativeStyle}}

### CHARACTERS
{{- if .Characters}}
{{- range $i, $c := .Characters}}

**Character {{inc $i}}:**
- Name: {{if $c.Name}}{{$c.Name}}{{else}}Unnamed{{end}}
- Role: {{value $c.Role}}
- Description: {{value $c.Description}}
- Abilities: {{value $c.Abilities}}
{{- end}}
{{- else}}
No characters defined
{{- end}}

### LEVELS & WORLD
- **Number of Levels:** {{value .LevelCount}}
- **Level Design Philosophy:** {{value .LevelDesignPhilosophy}}
- **Environment Types:** {{value .EnvironmentTypes}}

### ART & VISUALS
- **Art Style:** {{value .ArtStyle}}
- **Color Palette:** {{value .ColorPalette}}
- **UI Style:** {{value .UIStyle}}
- **Visual References:** {{value .VisualReferences}}

### AUDIO
- **Music Style:** {{value .MusicStyle}}
- **Sound Design:** {{value .SoundDesign}}
- **Voice Acting:** {{value .VoiceActing}}

### TECHNICAL
- **Game Engine:** {{value .Engine}}
- **Target FPS:** {{value .TargetFPS}}
- **Minimum Specs:** {{value .MinSpecs}}
- **Save System:** {{value .SaveSystem}}

### BUSINESS
- **Business Model:** {{value .BusinessModel}}
- **Pricing Strategy:** {{value .PricingStrategy}}
- **DLC Plans:** {{value .DLCPlans}}
- **Target Launch Date:** {{value .TargetLaunchDate}}
- **Marketing Channels:** {{value .MarketingChannels}}
- **Competitor Analysis:** {{value .CompetitorAnalysis}}

---

Create a comprehensive, professional GDD with these sections:
1. Executive Summary
2. Game Overview & Core Pillars
3. Gameplay Systems (mechanics, controls, loops)
4. Narrative Design (story, world, characters)
5. Level Design
6. Art Direction
7. Audio Design
8. Technical Specifications
9. Monetization & Business Model
10. Production Timeline

## OUTPUT FORMAT:
Respond with ONLY a valid JSON object with three string fields:

{
  "gddText": "FULL GDD IN MARKDOWN FORMAT (3000+ words, detailed, professional)",
  "mermaidChartCode": "graph TD\n    A[Start] --> B[Main Menu]\n    B --> C[Gameplay]",
  "mathTableHTML": "<table><thead><tr><th>Level</th><th>XP</th></tr></thead><tbody><tr><td>1</td><td>0</td></tr></tbody></table>"
}
`))

// BuildPrompt renders the generation instructions for a form.
func BuildPrompt(form models.GDDForm) (string, error) {
	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, form); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

func orDefault(v string) string {
	if strings.TrimSpace(v) == "" {
		return notSpecified
	}
	return v
}

func joinOrDefault(values []string) string {
	var kept []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return notSpecified
	}
	return strings.Join(kept, ", ")
}
