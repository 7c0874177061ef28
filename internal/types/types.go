package types

import "encoding/json"

// Document is an uploaded or on-disk artifact whose text will be extracted.
type Document struct {
	Filename string `json:"filename" validate:"omitempty,document_ext"`
	Data     []byte `json:"-" validate:"required,min=1"`
}

// MatchRequest is the input of a single resume/job matching run
type MatchRequest struct {
	Resume  *Document `validate:"required"`
	// JobFile is optional and never rejects a request; a bad file only produces a warning.
	JobFile *Document `validate:"-"`
	// JobFileErr records a job file rejected before extraction, such as an oversize upload.
	JobFileErr error `validate:"-"`
	JobText string
	// SkipSave disables persistence for this run only
	SkipSave bool
}

// Assessment is the normalized reply of the language model
type Assessment struct {
	ATSScore             *int     `json:"ats_score,omitempty"`
	MatchedKeywords      []string `json:"matched_keywords"`
	MissingKeywords      []string `json:"missing_keywords"`
	SkillGaps            []string `json:"skill_gaps"`
	Strengths            []string `json:"strengths"`
	Suggestions          []string `json:"suggestions"`
	ExperienceRelevance  *int     `json:"experience_relevance,omitempty"`
	RawKeywordsExtracted []string `json:"raw_keywords_extracted"`

	// Raw is the complete normalized object, including fields not modelled above.
	Raw map[string]any `json:"-"`
}

// MarshalJSON emits the raw normalized object when present so unmodelled fields survive.
func (a Assessment) MarshalJSON() ([]byte, error) {
	if a.Raw != nil {
		return json.Marshal(a.Raw)
	}
	type plain Assessment
	return json.Marshal(plain(a))
}

// EvaluationRecord is the subset of a run persisted to the remote store
type EvaluationRecord struct {
	ResumeText      string   `json:"resume_text"`
	JobText         string   `json:"job_text"`
	ATSScore        *int     `json:"ats_score"`
	MissingKeywords []string `json:"missing_keywords"`
}

// SaveResult reports the outcome of a persistence call
type SaveResult struct {
	ObjectID string `json:"objectId,omitempty"`
	Saved    bool   `json:"saved"`
}

// ProviderInfo describes the active language model backend
type ProviderInfo struct {
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName"`
	Model       string `json:"model"`
}

// MatchOutcome is everything produced by one matching run
type MatchOutcome struct {
	RequestID   string       `json:"requestId"`
	Provider    ProviderInfo `json:"provider"`
	Assessment  *Assessment  `json:"assessment"`
	Warnings    []string     `json:"warnings,omitempty"`
	Saved       bool         `json:"saved"`
	ObjectID    string       `json:"objectId,omitempty"`
	SaveError   string       `json:"saveError,omitempty"`
	ResumeChars int          `json:"resumeChars"`
	JobChars    int          `json:"jobChars"`
}
