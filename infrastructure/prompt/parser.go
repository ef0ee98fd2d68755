package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/litcast/infrastructure/groundtruth"
	"github.com/ahrav/litcast/internal/domain"
)

// DefaultMaxLabelDistance is the largest edit distance at which a resolution
// label is snapped to the nearest known label.
const DefaultMaxLabelDistance = 3

// keyAliases maps normalized response keys that models commonly use to the
// canonical field names.
var keyAliases = map[string]domain.Field{
	"resolution":                  domain.FieldResolutionType,
	"outcome":                     domain.FieldResolutionType,
	"disgorgement":                domain.FieldDisgorgementAmount,
	"penalty":                     domain.FieldPenaltyAmount,
	"civil_penalty":               domain.FieldPenaltyAmount,
	"civil_penalty_amount":        domain.FieldPenaltyAmount,
	"prejudgment_interest_amount": domain.FieldPrejudgmentInterest,
	"interest":                    domain.FieldPrejudgmentInterest,
	"injunction":                  domain.FieldHasInjunction,
	"officer_director_bar":        domain.FieldHasOfficerDirectorBar,
	"has_officer_bar":             domain.FieldHasOfficerDirectorBar,
	"conduct_restriction":         domain.FieldHasConductRestriction,
}

// resolutionAliases accepts the coarse labels older prompts asked for.
var resolutionAliases = map[string]domain.ResolutionType{
	"settled":    domain.SettledAction,
	"settlement": domain.SettledAction,
	"litigated":  domain.FinalJudgment,
	"ongoing":    domain.FiledCharges,
	"pending":    domain.FiledCharges,
}

var unknownWords = map[string]struct{}{
	"unknown": {}, "null": {}, "none": {}, "n/a": {}, "na": {}, "": {},
}

var (
	fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	linePattern  = regexp.MustCompile(`(?m)^\s*(?:[-*]\s*|\d+[.)]\s*)?"?([A-Za-z][A-Za-z_ /-]*?)"?\s*[:=]\s*(.+?)\s*,?\s*$`)
	keyReplacer  = strings.NewReplacer(" ", "_", "-", "_", "/", "_")
)

// Parser recovers predictions from free-form model responses.
type Parser struct {
	maxDistance int
}

// NewParser returns a Parser that snaps resolution labels within
// DefaultMaxLabelDistance edits.
func NewParser() *Parser {
	return &Parser{maxDistance: DefaultMaxLabelDistance}
}

// Parse extracts a prediction from raw. It looks for a fenced JSON block,
// then the whole response as JSON, then the first balanced object that
// names a prediction field, and finally "key: value" lines.
//
// A value that cannot be interpreted is reported as a warning and recorded
// as unknown, so it is scored as wrong rather than skipped. The returned
// error wraps domain.ErrUnparseableResponse when no prediction field is
// present or none of the present ones could be interpreted.
func (p *Parser) Parse(raw string) (domain.Prediction, []string, error) {
	fields, ok := findObject(raw)
	if !ok {
		fields = parseLines(raw)
	}

	values := canonicalize(fields)
	if len(values) == 0 {
		return domain.Prediction{}, nil, fmt.Errorf("%w: no prediction fields in %d byte response",
			domain.ErrUnparseableResponse, len(raw))
	}

	var (
		pred     domain.Prediction
		warnings []string
		bad      []domain.Field
	)
	for _, f := range domain.AllFields() {
		v, present := values[f]
		if !present {
			continue
		}
		if err := p.assign(&pred, f, v); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", f, err))
			bad = append(bad, f)
		}
	}
	if pred.GivenCount() == 0 {
		return domain.Prediction{}, warnings, fmt.Errorf("%w: no interpretable values (%s)",
			domain.ErrUnparseableResponse, strings.Join(warnings, "; "))
	}
	for _, f := range bad {
		pred.MarkUnknown(f)
	}
	pred.Reasoning = reasoning(fields)

	return pred, warnings, nil
}

func (p *Parser) assign(pred *domain.Prediction, f domain.Field, v any) error {
	if isUnknown(v) {
		pred.MarkUnknown(f)
		return nil
	}

	switch {
	case f == domain.FieldResolutionType:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected a label, got %T", v)
		}
		r, ok := p.resolution(s)
		if !ok {
			return fmt.Errorf("unrecognized resolution %q", s)
		}
		pred.ResolutionType = r

	case f.IsMonetary():
		amount, err := toAmount(v)
		if err != nil {
			return err
		}
		pred.SetAmount(f, amount)

	case f.IsFlag():
		b, err := toBool(v)
		if err != nil {
			return err
		}
		pred.SetFlag(f, b)
	}
	return nil
}

// resolution normalizes s and snaps it to the closest known label.
func (p *Parser) resolution(s string) (domain.ResolutionType, bool) {
	if r, ok := domain.ParseResolutionType(s); ok {
		return r, true
	}
	norm := normalizeKey(s)
	if r, ok := resolutionAliases[norm]; ok {
		return r, true
	}

	best, bestDist := domain.ResolutionType(""), p.maxDistance+1
	for _, r := range domain.ResolutionTypes() {
		if d := levenshtein.ComputeDistance(norm, string(r)); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best, best != ""
}

func isUnknown(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		_, ok := unknownWords[strings.ToLower(strings.Trim(strings.TrimSpace(t), `"'`))]
		return ok
	}
	return false
}

func toAmount(v any) (float64, error) {
	var (
		amount float64
		ok     bool
	)
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		amount, ok = f, err == nil
	case string:
		amount, ok = groundtruth.ParseAmount(t)
	default:
		return 0, fmt.Errorf("expected an amount, got %T", v)
	}
	if !ok {
		return 0, fmt.Errorf("unparseable amount %v", v)
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative amount %v", v)
	}
	return amount, nil
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case json.Number:
		switch t.String() {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
	case string:
		switch strings.ToLower(strings.Trim(strings.TrimSpace(t), `"'.`)) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0":
			return false, nil
		}
	}
	return false, fmt.Errorf("unparseable boolean %v", v)
}

// reasoning flattens the reasoning value, which models return either as a
// string or as an object of per-topic explanations.
func reasoning(fields map[string]any) string {
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		if normalizeKey(k) != "reasoning" {
			continue
		}
		v := fields[k]
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case nil:
			return ""
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return ""
			}
			return string(b)
		}
	}
	return ""
}

// canonicalize maps response keys to fields and drops keys that name none.
// A canonical key beats any alias of the same field; otherwise the key that
// sorts first wins.
func canonicalize(fields map[string]any) map[domain.Field]any {
	known := make(map[domain.Field]struct{}, len(domain.AllFields()))
	for _, f := range domain.AllFields() {
		known[f] = struct{}{}
	}

	out := make(map[domain.Field]any)
	canonical := make(map[domain.Field]bool)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		v := fields[k]
		norm := normalizeKey(k)
		f := domain.Field(norm)
		if _, ok := known[f]; !ok {
			alias, ok := keyAliases[norm]
			if !ok {
				continue
			}
			f = alias
		}
		if _, dup := out[f]; dup && (domain.Field(norm) != f || canonical[f]) {
			continue
		}
		if domain.Field(norm) == f {
			canonical[f] = true
		}
		out[f] = v
	}
	return out
}

func normalizeKey(s string) string {
	return keyReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// findObject returns the first JSON object in raw that names at least one
// prediction field.
func findObject(raw string) (map[string]any, bool) {
	var candidates []string
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, strings.TrimSpace(raw))
	candidates = append(candidates, balancedObjects(raw)...)

	for _, c := range candidates {
		obj, ok := decodeObject(c)
		if ok && len(canonicalize(obj)) > 0 {
			return obj, true
		}
	}
	return nil, false
}

func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return obj, true
}

// balancedObjects returns every top-level brace-balanced span in s,
// ignoring braces inside JSON strings.
func balancedObjects(s string) []string {
	var (
		out      []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, s[start:i+1])
			}
		}
	}
	return out
}

// parseLines is the last resort for responses written as "Key: value"
// lines instead of JSON.
func parseLines(raw string) map[string]any {
	fields := make(map[string]any)
	for _, m := range linePattern.FindAllStringSubmatch(raw, -1) {
		key := m[1]
		if _, seen := fields[key]; seen {
			continue
		}
		fields[key] = strings.Trim(m[2], `"'`)
	}
	return fields
}
