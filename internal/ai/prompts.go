package ai

import "fmt"

// DefaultSystemPrompt instructs the model to answer with the assessment object only.
const DefaultSystemPrompt = `You are an assistant that compares a candidate resume against a job description and returns a single JSON object (only JSON) with the following fields:
- ats_score: integer 0-100
- matched_keywords: array of strings
- missing_keywords: array of strings
- skill_gaps: array of short descriptions
- strengths: array of short descriptions
- suggestions: array of short improvement suggestions
- experience_relevance: integer 0-100 (how relevant experience is)
- raw_keywords_extracted: array of strings (all keywords extracted)
Analyze both the resume and the job description. If the job description is empty, do a general role-based keyword extraction and score conservatively.
Provide only the JSON output and nothing else. Ensure numeric fields are numbers (not strings).`

const userInputTemplate = "<RESUME>\n%s\n</RESUME>\n<JOB>\n%s\n</JOB>"

// BuildUserInput wraps both documents in the tag markers the system prompt refers to.
// An empty job description still produces an (empty) JOB block.
func BuildUserInput(resumeText, jobText string) string {
	return fmt.Sprintf(userInputTemplate, resumeText, jobText)
}

// resolveSystemPrompt prefers a configured prompt over the built-in one
func resolveSystemPrompt(configured string) string {
	if configured != "" {
		return configured
	}
	return DefaultSystemPrompt
}
