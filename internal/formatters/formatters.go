package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"atsmatch/internal/types"
)

// Placeholder is shown for empty lists and missing values
const Placeholder = "—"

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "MatchOutcome", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchOutcome", &MatchMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

// IsSupported reports whether format has any registered formatter
func (fr *FormatterRegistry) IsSupported(format string) bool {
	_, ok := fr.formatters[format]
	return ok
}

func getDataType(data any) string {
	switch data.(type) {
	case types.MatchOutcome, *types.MatchOutcome:
		return "MatchOutcome"
	default:
		return "any"
	}
}

func asOutcome(data any) (*types.MatchOutcome, error) {
	switch v := data.(type) {
	case types.MatchOutcome:
		return &v, nil
	case *types.MatchOutcome:
		if v == nil {
			return nil, fmt.Errorf("expected MatchOutcome, got nil")
		}
		return v, nil
	default:
		return nil, fmt.Errorf("expected MatchOutcome, got %T", data)
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// MatchTextFormatter renders a match outcome for a terminal
type MatchTextFormatter struct{}

func (mtf *MatchTextFormatter) Format(data any) (string, error) {
	outcome, err := asOutcome(data)
	if err != nil {
		return "", err
	}
	a := assessmentOf(outcome)

	var output strings.Builder

	output.WriteString("=== ATS MATCH ===\n\n")
	output.WriteString(fmt.Sprintf("Provider: %s (%s)\n", outcome.Provider.DisplayName, outcome.Provider.Model))
	output.WriteString(fmt.Sprintf("ATS Score: %s\n", Score(a.ATSScore)))
	output.WriteString(fmt.Sprintf("Experience Relevance: %s\n\n", Percent(a.ExperienceRelevance)))

	output.WriteString("Matched Keywords: ")
	output.WriteString(Chips(a.MatchedKeywords))
	output.WriteString("\n")
	output.WriteString("Missing Keywords: ")
	output.WriteString(Chips(a.MissingKeywords))
	output.WriteString("\n\n")

	writeTextList(&output, "Skill Gaps", "•", a.SkillGaps)
	writeTextList(&output, "Strengths", "✓", a.Strengths)
	writeTextList(&output, "Suggestions", "-", a.Suggestions)

	if len(outcome.Warnings) > 0 {
		output.WriteString("=== WARNINGS ===\n")
		for _, warning := range outcome.Warnings {
			output.WriteString(fmt.Sprintf("! %s\n", warning))
		}
		output.WriteString("\n")
	}

	output.WriteString(fmt.Sprintf("Saved: %s\n", savedLabel(outcome)))
	return output.String(), nil
}

func (mtf *MatchTextFormatter) SupportedType() string {
	return "MatchOutcome"
}

func writeTextList(output *strings.Builder, title, bullet string, items []string) {
	output.WriteString(title)
	output.WriteString(":\n")
	if len(items) == 0 {
		output.WriteString(fmt.Sprintf("  %s\n\n", Placeholder))
		return
	}
	for _, item := range items {
		output.WriteString(fmt.Sprintf("  %s %s\n", bullet, item))
	}
	output.WriteString("\n")
}

// MatchMarkdownFormatter renders a match outcome as markdown, including the raw reply
type MatchMarkdownFormatter struct{}

func (mmf *MatchMarkdownFormatter) Format(data any) (string, error) {
	outcome, err := asOutcome(data)
	if err != nil {
		return "", err
	}
	a := assessmentOf(outcome)

	var output strings.Builder

	output.WriteString("# ATS Match\n\n")
	output.WriteString(fmt.Sprintf("**ATS Score:** %s\n\n", Score(a.ATSScore)))
	output.WriteString(fmt.Sprintf("**Experience Relevance:** %s\n\n", Percent(a.ExperienceRelevance)))
	output.WriteString(fmt.Sprintf("_Analyzed by %s (%s)_\n\n", outcome.Provider.DisplayName, outcome.Provider.Model))

	if len(outcome.Warnings) > 0 {
		for _, warning := range outcome.Warnings {
			output.WriteString(fmt.Sprintf("> ⚠ %s\n", warning))
		}
		output.WriteString("\n")
	}

	output.WriteString("## Keywords\n\n")
	output.WriteString("**Matched:** ")
	output.WriteString(markdownChips(a.MatchedKeywords))
	output.WriteString("\n\n**Missing:** ")
	output.WriteString(markdownChips(a.MissingKeywords))
	output.WriteString("\n\n")

	writeMarkdownList(&output, "Skill Gaps", "", a.SkillGaps)
	writeMarkdownList(&output, "Strengths", "✓ ", a.Strengths)
	writeMarkdownList(&output, "Suggestions", "", a.Suggestions)

	output.WriteString(fmt.Sprintf("**Saved:** %s\n\n", savedLabel(outcome)))

	raw, err := RawJSON(outcome.Assessment)
	if err != nil {
		return "", err
	}
	output.WriteString("## Raw JSON\n\n```json\n")
	output.WriteString(raw)
	output.WriteString("\n```\n")

	return output.String(), nil
}

func (mmf *MatchMarkdownFormatter) SupportedType() string {
	return "MatchOutcome"
}

func writeMarkdownList(output *strings.Builder, title, prefix string, items []string) {
	output.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(items) == 0 {
		output.WriteString(Placeholder)
		output.WriteString("\n\n")
		return
	}
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s%s\n", prefix, item))
	}
	output.WriteString("\n")
}

func markdownChips(items []string) string {
	if len(items) == 0 {
		return Placeholder
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "`" + item + "`"
	}
	return strings.Join(quoted, " ")
}

// Score renders an ATS score as N/100
func Score(score *int) string {
	if score == nil {
		return Placeholder
	}
	return fmt.Sprintf("%d/100", *score)
}

// Percent renders a relevance value as N%
func Percent(value *int) string {
	if value == nil {
		return Placeholder
	}
	return fmt.Sprintf("%d%%", *value)
}

// Chips joins keywords for plain-text display
func Chips(items []string) string {
	if len(items) == 0 {
		return Placeholder
	}
	return "[" + strings.Join(items, "] [") + "]"
}

// RawJSON pretty-prints the normalized reply, unmodelled fields included
func RawJSON(a *types.Assessment) (string, error) {
	if a == nil {
		return "{}", nil
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render assessment: %w", err)
	}
	return string(data), nil
}

func assessmentOf(outcome *types.MatchOutcome) *types.Assessment {
	if outcome.Assessment == nil {
		return &types.Assessment{}
	}
	return outcome.Assessment
}

func savedLabel(outcome *types.MatchOutcome) string {
	if outcome.Saved {
		if outcome.ObjectID != "" {
			return fmt.Sprintf("yes (%s)", outcome.ObjectID)
		}
		return "yes"
	}
	return "no"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
