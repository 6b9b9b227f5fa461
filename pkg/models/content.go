package models

import "encoding/json"

// Job is a job posting as stored in the CMS
type Job struct {
	ID              int             `json:"id"`
	DocumentID      string          `json:"documentId"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	Description     json.RawMessage `json:"description,omitempty"`
	Location        string          `json:"location"`
	Highlight       bool            `json:"highlight"`
	FeaturedOrder   int             `json:"featuredOrder"`
	JobStatus       string          `json:"jobStatus"`
	ClosingDate     *string         `json:"closingDate"`
	EmploymentType  string          `json:"employmentType"`
	MetaTitle       string          `json:"metaTitle,omitempty"`
	MetaDescription string          `json:"metaDescription,omitempty"`
	Locale          string          `json:"locale"`
	UpdatedAt       string          `json:"updatedAt"`
}

// FAQ is a question/answer pair from the CMS
type FAQ struct {
	ID         int             `json:"id"`
	DocumentID string          `json:"documentId"`
	Question   string          `json:"question"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Category   string          `json:"category,omitempty"`
	Order      int             `json:"order,omitempty"`
	Locale     string          `json:"locale"`
}
