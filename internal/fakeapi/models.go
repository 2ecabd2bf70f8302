package fakeapi

import (
	"encoding/json"
	"time"
)

const naiveLayout = "2006-01-02T15:04:05.000000"

// naiveTime serializes without a zone, the way the production API returns
// timestamps read back from its document store.
type naiveTime time.Time

func (t naiveTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(naiveLayout))
}

func (t *naiveTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.Parse(naiveLayout, raw)
	if err != nil {
		return err
	}
	*t = naiveTime(parsed)
	return nil
}

type user struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt naiveTime `json:"created_at"`
	password  string
}

type session struct {
	userID    string
	expiresAt time.Time
}

type prompt struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt naiveTime `json:"created_at"`
	UpdatedAt naiveTime `json:"updated_at"`
}

type analysis struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	DocumentName  string    `json:"document_name"`
	PromptID      string    `json:"prompt_id"`
	AIModel       string    `json:"ai_model"`
	ExtractedText string    `json:"extracted_text"`
	Response      string    `json:"response"`
	CreatedAt     naiveTime `json:"created_at"`
}

// Identity is what the identity provider vouches for during a federated
// exchange.
type Identity struct {
	Email   string
	Name    string
	Picture string
}

type authResponse struct {
	User         user   `json:"user"`
	SessionToken string `json:"session_token"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type promptCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type promptUpdateRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type analysisOptions struct {
	PromptID string `json:"prompt_id"`
	AIModel  string `json:"ai_model"`
}

type textAnalysisRequest struct {
	PromptID     string `json:"prompt_id"`
	AIModel      string `json:"ai_model"`
	TextContent  string `json:"text_content"`
	DocumentName string `json:"document_name"`
}
