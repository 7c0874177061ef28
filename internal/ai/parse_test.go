package ai

import (
	"encoding/json"
	"testing"

	"atsmatch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplyExtractsEmbeddedObject(t *testing.T) {
	reply := "Sure! Here is the analysis you asked for:\n" +
		`{"ats_score": 78, "matched_keywords": ["go", "kubernetes"], "missing_keywords": ["terraform"],` +
		` "skill_gaps": [], "strengths": ["backend"], "suggestions": ["add metrics"],` +
		` "experience_relevance": 64, "raw_keywords_extracted": ["go", "kubernetes", "terraform"]}` +
		"\nLet me know if you need anything else."

	assessment, err := ParseReply(reply)
	require.NoError(t, err)

	require.NotNil(t, assessment.ATSScore)
	assert.Equal(t, 78, *assessment.ATSScore)
	require.NotNil(t, assessment.ExperienceRelevance)
	assert.Equal(t, 64, *assessment.ExperienceRelevance)
	assert.Equal(t, []string{"go", "kubernetes"}, assessment.MatchedKeywords)
	assert.Equal(t, []string{"terraform"}, assessment.MissingKeywords)
	assert.Empty(t, assessment.SkillGaps)
	assert.Equal(t, []string{"backend"}, assessment.Strengths)
	assert.Equal(t, []string{"add metrics"}, assessment.Suggestions)
	assert.Len(t, assessment.RawKeywordsExtracted, 3)
}

func TestParseReplySelectsFirstObject(t *testing.T) {
	reply := `first {"ats_score": 10, "strengths": ["a"]} then {"ats_score": 99}`

	assessment, err := ParseReply(reply)
	require.NoError(t, err)
	require.NotNil(t, assessment.ATSScore)
	assert.Equal(t, 10, *assessment.ATSScore)
	assert.Equal(t, []string{"a"}, assessment.Strengths)
}

func TestParseReplySkipsBracesInProse(t *testing.T) {
	reply := `Use the {template} below: {"ats_score": 55}`

	assessment, err := ParseReply(reply)
	require.NoError(t, err)
	require.NotNil(t, assessment.ATSScore)
	assert.Equal(t, 55, *assessment.ATSScore)
}

func TestParseReplyNestedObject(t *testing.T) {
	reply := "```json\n{\"ats_score\": 40, \"details\": {\"seniority\": \"mid\"}}\n```"

	assessment, err := ParseReply(reply)
	require.NoError(t, err)
	assert.Equal(t, 40, *assessment.ATSScore)
	details, ok := assessment.Raw["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "mid", details["seniority"])
}

func TestParseReplyScoreCoercion(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected *int
	}{
		{"integer", `{"ats_score": 85}`, intPtr(85)},
		{"numeric string", `{"ats_score": "85"}`, intPtr(85)},
		{"padded string", `{"ats_score": " 85 "}`, intPtr(85)},
		{"non numeric string", `{"ats_score": "abc"}`, intPtr(0)},
		{"decimal string", `{"ats_score": "85.5"}`, intPtr(0)},
		{"float truncates", `{"ats_score": 85.9}`, intPtr(85)},
		{"true", `{"ats_score": true}`, intPtr(1)},
		{"false", `{"ats_score": false}`, intPtr(0)},
		{"null", `{"ats_score": null}`, intPtr(0)},
		{"array", `{"ats_score": [85]}`, intPtr(0)},
		{"absent", `{"strengths": []}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment, err := ParseReply(tt.reply)
			require.NoError(t, err)

			if tt.expected == nil {
				assert.Nil(t, assessment.ATSScore)
				_, present := assessment.Raw["ats_score"]
				assert.False(t, present, "absent field must stay absent")
				return
			}
			require.NotNil(t, assessment.ATSScore)
			assert.Equal(t, *tt.expected, *assessment.ATSScore)
			assert.Equal(t, *tt.expected, assessment.Raw["ats_score"])
		})
	}
}

func TestParseReplyRelevanceCoercion(t *testing.T) {
	assessment, err := ParseReply(`{"experience_relevance": "70", "ats_score": 1}`)
	require.NoError(t, err)
	require.NotNil(t, assessment.ExperienceRelevance)
	assert.Equal(t, 70, *assessment.ExperienceRelevance)

	assessment, err = ParseReply(`{"experience_relevance": "high"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, *assessment.ExperienceRelevance)
}

func TestParseReplyPassesOtherFieldsThrough(t *testing.T) {
	assessment, err := ParseReply(`{"ats_score": 5, "summary": "short", "strengths": "one thing"}`)
	require.NoError(t, err)

	assert.Equal(t, "short", assessment.Raw["summary"])
	assert.Equal(t, "one thing", assessment.Raw["strengths"])
	assert.Equal(t, []string{"one thing"}, assessment.Strengths)

	encoded, err := json.Marshal(assessment)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ats_score": 5, "summary": "short", "strengths": "one thing"}`, string(encoded))
}

func TestParseReplyFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no json", "I cannot help with that."},
		{"broken object", `{"ats_score": 85, "strengths": [}`},
		{"array", `["go", "rust"]`},
		{"empty", ""},
		{"truncated with nested object", `{"ats_score": 80, "matched_keywords": ["go"], "meta": {"note": "x"}, "missing_keywords": ["k8`},
		{"truncated with nested object after prose", `Result: {"ats_score": 80, "meta": {"a": {"b": 1}}, "strengths": ["{"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReply(tt.reply)
			require.Error(t, err)

			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeInvalidReply, appErr.Code)
			assert.Equal(t, tt.reply, appErr.Context["reply"], "raw reply must be kept for diagnosis")
		})
	}
}

func TestFirstJSONObjectIgnoresNestedCandidates(t *testing.T) {
	_, ok := firstJSONObject(`{"ats_score": 1, "meta": {"note": "x"}, "cut`)
	assert.False(t, ok)

	object, ok := firstJSONObject(`{"bad": } then {"ats_score": 2, "note": "a } brace"}`)
	require.True(t, ok)
	assert.Equal(t, `{"ats_score": 2, "note": "a } brace"}`, object)
}

func TestGreedySpan(t *testing.T) {
	assert.Equal(t, `{"a": 1} and {"b": 2}`, greedySpan(`x {"a": 1} and {"b": 2} y`))
	assert.Equal(t, "no braces", greedySpan("no braces"))
	assert.Equal(t, "} {", greedySpan("} {"))
}

func intPtr(i int) *int { return &i }
