// Package prompt renders case prompts for language models and parses their
// free-form replies back into predictions.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/litcast/internal/domain"
)

var validate = validator.New()

// TruncationMarker is appended to complaint text cut at MaxTextLength.
const TruncationMarker = "\n\n[...TRUNCATED...]"

// SystemInstruction is sent through the "system" option on every request.
const SystemInstruction = "You are a legal analyst evaluating SEC enforcement cases. " +
	"You predict case outcomes from the complaint alone and answer with a single JSON object."

// Style selects a prompt template.
type Style string

// Prompt styles.
const (
	// StyleFull explains every field and asks for reasoning.
	StyleFull Style = "full"
	// StyleShort is a compact prompt for models with small context windows.
	StyleShort Style = "short"
)

const fullTemplate = `Read the following SEC complaint and predict the likely outcome.

---
COMPLAINT:
{{.ComplaintText}}
---

Predict the following outcomes for this case:

1. Resolution Type: choose exactly one of:
{{- range .ResolutionTypes}}
   - {{.}}
{{- end}}

2. Disgorgement Amount: the amount in dollars the defendant must return (ill-gotten gains). Enter a number, or "unknown".

3. Civil Penalty Amount: the civil penalty in dollars. Enter a number, or "unknown".

4. Prejudgment Interest: interest on disgorgement in dollars. Enter a number, or "unknown".

5. Has Injunction: will there be injunctive relief? (true/false)

6. Has Officer/Director Bar: will the defendant be barred from serving as an officer or director? (true/false)

7. Has Conduct Restriction: will there be conduct-based restrictions such as trading restrictions or an industry bar? (true/false)

Respond in the following JSON format:
` + "```json" + `
{
  "resolution_type": "<one of the labels above>",
  "disgorgement_amount": <number or "unknown">,
  "penalty_amount": <number or "unknown">,
  "prejudgment_interest": <number or "unknown">,
  "has_injunction": true/false,
  "has_officer_director_bar": true/false,
  "has_conduct_restriction": true/false,
  "reasoning": "<brief explanation>"
}
` + "```" + `

Provide your prediction based solely on the complaint text provided.`

const shortTemplate = `Analyze this SEC complaint and predict the case outcome.

COMPLAINT:
{{.ComplaintText}}

Predict in JSON format:
- resolution_type: one of {{join .ResolutionTypes ", "}}
- disgorgement_amount: number or "unknown"
- penalty_amount: number or "unknown"
- prejudgment_interest: number or "unknown"
- has_injunction: true/false
- has_officer_director_bar: true/false
- has_conduct_restriction: true/false
- reasoning: brief explanation

Respond with JSON only.`

// FormatterConfig configures a Formatter.
type FormatterConfig struct {
	Style Style `yaml:"style" json:"style" validate:"omitempty,oneof=full short"`
	// MaxTextLength truncates complaint text to this many characters. Zero
	// disables truncation.
	MaxTextLength int `yaml:"max_text_length" json:"max_text_length" validate:"gte=0"`
}

// Formatter renders prompts from evaluation records. Only the complaint
// text reaches the template; ground truth and metadata never do.
type Formatter struct {
	tmpl          *template.Template
	maxTextLength int
}

type templateData struct {
	ComplaintText   string
	ResolutionTypes []string
}

// NewFormatter validates cfg and compiles the selected template.
func NewFormatter(cfg FormatterConfig) (*Formatter, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("formatter configuration validation failed: %w", err)
	}

	text := fullTemplate
	if cfg.Style == StyleShort {
		text = shortTemplate
	}
	tmpl, err := template.New("prompt").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	return &Formatter{tmpl: tmpl, maxTextLength: cfg.MaxTextLength}, nil
}

// Render builds the prompt for rec.
func (f *Formatter) Render(rec domain.EvaluationRecord) (string, error) {
	if strings.TrimSpace(rec.InputText) == "" {
		return "", domain.NewCaseError(rec.CaseID, "render prompt", domain.ErrEmptyValue)
	}

	labels := make([]string, 0, len(domain.ResolutionTypes()))
	for _, r := range domain.ResolutionTypes() {
		labels = append(labels, string(r))
	}

	var b strings.Builder
	err := f.tmpl.Execute(&b, templateData{
		ComplaintText:   Truncate(rec.InputText, f.maxTextLength),
		ResolutionTypes: labels,
	})
	if err != nil {
		return "", domain.NewCaseError(rec.CaseID, "render prompt", err)
	}
	return b.String(), nil
}

// Truncate cuts text to max characters and appends TruncationMarker. A
// non-positive max returns text unchanged.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + TruncationMarker
}
