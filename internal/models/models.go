// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The `db` tags work with sqlx for database column mapping.
package models

import (
	"encoding/json"
	"time"
)

// User is an account known to the identity provider.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // never serialized
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Session is what the app knows about the current visitor. The app only
// reads SignedIn and UserID; everything else belongs to the provider.
type Session struct {
	SignedIn bool   `json:"signed_in"`
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

// SignedOut is the zero session handed to anonymous requests.
var SignedOut = Session{}

// Metrics is the readability and social-media statistics object produced by
// the analysis API. The app never decodes it strictly: it forwards the raw
// object and only reads a display copy out of it.
//
// Flesch and grade are pointers: the analysis API omits them (null) for texts
// too short to score.
type Metrics struct {
	WordCount         int        `json:"word_count"`
	CharCount         int        `json:"char_count"`
	AvgSentenceLen    float64    `json:"avg_sentence_len"`
	FleschReadingEase *float64   `json:"flesch_reading_ease"`
	ReadabilityGrade  *string    `json:"readability_grade"`
	Sentiment         *Sentiment `json:"sentiment,omitempty"`
	EmojiCount        int        `json:"emoji_count"`
	Hashtags          []string   `json:"hashtags"`
	Mentions          []string   `json:"mentions"`
	Links             []string   `json:"links"`
	Suggestions       []string   `json:"suggestions"`
}

// Sentiment is the VADER polarity of the text. Compound runs from -1 (most
// negative) to 1.
type Sentiment struct {
	Negative float64 `json:"neg"`
	Neutral  float64 `json:"neu"`
	Positive float64 `json:"pos"`
	Compound float64 `json:"compound"`
}

// AnalysisResult is the success body of POST /api/analyze.
type AnalysisResult struct {
	Source        string   `json:"source,omitempty"` // "pdf", "image" or "raw_text"
	ExtractedText string   `json:"extracted_text"`
	Metrics       *Metrics `json:"metrics"`
	Warning       string   `json:"warning,omitempty"`
}

// ReceivedAnalysis is a success body as the app reads it. Metrics stays raw
// so whatever the analysis API sends is passed on unchanged.
type ReceivedAnalysis struct {
	Source        string          `json:"source,omitempty"`
	ExtractedText string          `json:"extracted_text"`
	Metrics       json.RawMessage `json:"metrics"`
	Warning       string          `json:"warning,omitempty"`
}

// AnalysisError is the failure body of POST /api/analyze. The Error field is
// the human-readable message shown to the user.
type AnalysisError struct {
	Error string `json:"error"`
}

// StoredRecord is the copy of an analysis written to the document store.
// JSON keys are part of the stored document and must not change.
type StoredRecord struct {
	UserID        string `json:"user_id"`
	FileName      string `json:"fileName"`
	ExtractedText string `json:"extractedText"`
}

// Document is one entry in the document store.
type Document struct {
	ID           string          `json:"id" db:"id"`
	DatabaseID   string          `json:"database_id" db:"database_id"`
	CollectionID string          `json:"collection_id" db:"collection_id"`
	Data         json.RawMessage `json:"data" db:"data"` // JSONB payload
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// --- Request/Response DTOs ---

// RegisterRequest is the JSON body for POST /api/v1/auth/register and the
// sign-up form.
type RegisterRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8"`
	Name     string `json:"name" form:"name" binding:"required"`
}

// LoginRequest is the JSON body for POST /api/v1/auth/login and the sign-in form.
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// AuthResponse is returned after successful sign-in or sign-up.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// AnalyzeResponse is returned by POST /api/v1/analyze.
type AnalyzeResponse struct {
	State    string          `json:"state"`
	FileName string          `json:"file_name"`
	Text     string          `json:"text"`
	Metrics  json.RawMessage `json:"metrics"` // as received from the analysis API
	Warning  string          `json:"warning,omitempty"`
	Persist  string          `json:"persist"` // queued, stored, failed or skipped
}

// ErrorResponse is a standard error format for all app API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Database     string `json:"database"`
	Workers      int    `json:"workers"`
	PersistQueue int    `json:"persist_queue"`
}
