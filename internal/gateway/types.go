package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Model identifiers accepted by the analysis endpoints.
const (
	ModelGPT5    = "gpt-5"
	ModelClaude4 = "claude-4"
)

// TextDocumentName is the document name the server records for text analyses.
const TextDocumentName = "Text Input"

// Timestamp decodes the server's ISO-8601 timestamps, which may lack a zone.
// Zoneless values are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// User is the authenticated account as the server reports it.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// AuthResult is returned by login, register and the federated exchange.
type AuthResult struct {
	User         User   `json:"user"`
	SessionToken string `json:"session_token"`
}

// Credentials is the login body; Name is sent only on register.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type Prompt struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

type PromptCreate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// PromptUpdate is a partial update; nil fields are left unchanged.
type PromptUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Analysis is a stored analysis result.
type Analysis struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	DocumentName  string    `json:"document_name"`
	PromptID      string    `json:"prompt_id"`
	AIModel       string    `json:"ai_model"`
	ExtractedText string    `json:"extracted_text"`
	Response      string    `json:"response"`
	CreatedAt     Timestamp `json:"created_at"`
}

// AnalysisOptions is the JSON sidecar sent with an uploaded file.
type AnalysisOptions struct {
	PromptID string `json:"prompt_id"`
	AIModel  string `json:"ai_model"`
}

type TextAnalysis struct {
	PromptID     string `json:"prompt_id"`
	AIModel      string `json:"ai_model"`
	TextContent  string `json:"text_content"`
	DocumentName string `json:"document_name"`
}

// Download is a fetched analysis report.
type Download struct {
	FileName    string
	ContentType string
	Body        []byte
}

// DownloadFileName is the local name a report for analysisID is saved under.
func DownloadFileName(analysisID string) string {
	return "analysis_" + analysisID + ".txt"
}

type successResponse struct {
	Success bool `json:"success"`
}

type statusResponse struct {
	Message string `json:"message"`
}
