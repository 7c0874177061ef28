package ai

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"atsmatch/internal/errors"
	"atsmatch/internal/types"

	"github.com/tidwall/gjson"
)

// integer fields coerced after parsing
var integerFields = []string{"ats_score", "experience_relevance"}

// ParseReply locates the assessment object in a free-text model reply and normalizes it.
//
// The first complete top-level JSON object in the reply wins. When no object decodes on its own,
// the span from the first '{' to the last '}' is tried, then the same span with
// surrounding whitespace and quote characters removed.
func ParseReply(reply string) (*types.Assessment, error) {
	objectText, ok := firstJSONObject(reply)
	if !ok {
		span := greedySpan(reply)
		switch {
		case json.Valid([]byte(span)):
			objectText = span
		case json.Valid([]byte(strings.Trim(strings.TrimSpace(span), "\" \t\r\n"))):
			objectText = strings.Trim(strings.TrimSpace(span), "\" \t\r\n")
		default:
			return nil, errors.NewAIError(errors.ErrCodeInvalidReply,
				"Failed to parse JSON from model reply", nil).
				WithContext("reply", reply)
		}
	}

	if !gjson.Parse(objectText).IsObject() {
		return nil, errors.NewAIError(errors.ErrCodeInvalidReply,
			"Model reply JSON is not an object", nil).
			WithContext("reply", reply)
	}

	return normalize(objectText)
}

// firstJSONObject returns the first top-level '{' that starts a complete object.
// Braces nested inside a candidate that failed to decode are never tried on their own,
// so a truncated reply cannot yield one of its inner objects.
func firstJSONObject(text string) (string, bool) {
	depth := 0
	inString, escaped := false, false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if depth > 0 {
			switch {
			case inString && escaped:
				escaped = false
			case inString && c == '\\':
				escaped = true
			case inString && c == '"':
				inString = false
			case inString:
			case c == '"':
				inString = true
			case c == '{':
				depth++
			case c == '}':
				depth--
			}
			continue
		}

		if c != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
				return string(trimmed), true
			}
		}
		depth = 1
	}
	return "", false
}

// greedySpan returns first '{' through last '}', or the whole text when there is no such span
func greedySpan(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}

// normalize builds the assessment from a JSON object, coercing the integer fields
func normalize(objectText string) (*types.Assessment, error) {
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(objectText))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.NewAIError(errors.ErrCodeInvalidReply,
			"Failed to decode model reply object", err).
			WithContext("reply", objectText)
	}

	assessment := &types.Assessment{Raw: raw}

	for _, field := range integerFields {
		result := gjson.Get(objectText, gjsonKey(field))
		if !result.Exists() {
			continue
		}
		value := coerceInt(result)
		raw[field] = value
		switch field {
		case "ats_score":
			assessment.ATSScore = &value
		case "experience_relevance":
			assessment.ExperienceRelevance = &value
		}
	}

	assessment.MatchedKeywords = stringList(objectText, "matched_keywords")
	assessment.MissingKeywords = stringList(objectText, "missing_keywords")
	assessment.SkillGaps = stringList(objectText, "skill_gaps")
	assessment.Strengths = stringList(objectText, "strengths")
	assessment.Suggestions = stringList(objectText, "suggestions")
	assessment.RawKeywordsExtracted = stringList(objectText, "raw_keywords_extracted")

	return assessment, nil
}

// coerceInt truncates numbers, parses numeric strings and maps booleans to 1/0; anything else is 0
func coerceInt(result gjson.Result) int {
	switch result.Type {
	case gjson.Number:
		return int(result.Float())
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(result.Str))
		if err != nil {
			return 0
		}
		return n
	case gjson.True:
		return 1
	default:
		return 0
	}
}

// stringList reads an array of strings; a bare string becomes a one-element list
func stringList(objectText, field string) []string {
	result := gjson.Get(objectText, gjsonKey(field))
	switch {
	case result.IsArray():
		items := result.Array()
		list := make([]string, 0, len(items))
		for _, item := range items {
			list = append(list, item.String())
		}
		return list
	case result.Type == gjson.String && strings.TrimSpace(result.Str) != "":
		return []string{result.Str}
	default:
		return nil
	}
}

// gjsonKey escapes path metacharacters so a field name is matched literally
func gjsonKey(field string) string {
	replacer := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return replacer.Replace(field)
}
