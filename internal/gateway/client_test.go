package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docwise-client/internal/credential"
	"docwise-client/internal/fakeapi"
	"docwise-client/internal/shared/telemetry"
)

type testEnv struct {
	api    *fakeapi.Server
	server *httptest.Server
	creds  *credential.Store
	client *Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(nil)

	api := fakeapi.NewServer(fakeapi.Options{})
	server := httptest.NewServer(fakeapi.NewRouter(api, fakeapi.RouterOptions{}))
	t.Cleanup(server.Close)

	creds, err := credential.NewStore(credential.Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("credential store: %v", err)
	}
	client, err := New(Options{BaseURL: server.URL + "/", Credentials: creds, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return &testEnv{api: api, server: server, creds: creds, client: client}
}

func (e *testEnv) signIn(t *testing.T) string {
	t.Helper()
	userID := e.api.SeedUser("a@b.com", "x", "A")
	if err := e.creds.Set(e.api.SeedSession(userID)); err != nil {
		t.Fatalf("set credential: %v", err)
	}
	return userID
}

func TestMeWithoutCredentialIsUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Me(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if Detail(err) != "Not authenticated" {
		t.Fatalf("expected server detail, got %q", Detail(err))
	}
	if !IsAuthRejection(err) {
		t.Fatalf("expected auth rejection")
	}
}

func TestLoginThenMeUsesBearer(t *testing.T) {
	env := newTestEnv(t)
	env.api.SeedUser("a@b.com", "x", "A")

	res, err := env.client.Login(context.Background(), "a@b.com", "x")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.SessionToken == "" || res.User.Name != "A" {
		t.Fatalf("unexpected login result %+v", res)
	}
	if res.User.CreatedAt.IsZero() {
		t.Fatalf("expected naive created_at to parse")
	}

	if err := env.creds.Set(res.SessionToken); err != nil {
		t.Fatalf("set: %v", err)
	}
	me, err := env.client.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Email != "a@b.com" {
		t.Fatalf("unexpected me %+v", me)
	}
}

func TestLoginFailureCarriesDetail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Login(context.Background(), "a@b.com", "wrong")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Status != http.StatusUnauthorized || reqErr.Detail != "Invalid credentials" {
		t.Fatalf("unexpected error %+v", reqErr)
	}
	if DetailOr(err, "Login failed") != "Invalid credentials" {
		t.Fatalf("expected detail over fallback")
	}
}

func TestRegisterValidationListIsJoined(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Register(context.Background(), "a@b.com", "", "")
	if got := Detail(err); got != "field required; field required" {
		t.Fatalf("unexpected detail %q", got)
	}
}

func TestExchangeSessionSendsHeader(t *testing.T) {
	env := newTestEnv(t)
	id := env.api.IssueSessionID(fakeapi.Identity{Email: "g@b.com", Name: "G"})

	res, err := env.client.ExchangeSession(context.Background(), id)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if res.User.Email != "g@b.com" || res.SessionToken == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	_, err = env.client.ExchangeSession(context.Background(), id)
	if DetailOr(err, "") != "Invalid session ID" {
		t.Fatalf("expected single-use rejection, got %v", err)
	}
	if env.api.Calls(http.MethodPost, "/api/auth/session-data") != 2 {
		t.Fatalf("expected 2 exchange calls")
	}
}

func TestPromptLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	ctx := context.Background()

	created, err := env.client.CreatePrompt(ctx, PromptCreate{Title: "Summary", Content: "Summarize"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	content := "Summarize briefly"
	updated, err := env.client.UpdatePrompt(ctx, created.ID, PromptUpdate{Content: &content})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Summary" || updated.Content != content {
		t.Fatalf("expected partial update, got %+v", updated)
	}

	list, err := env.client.ListPrompts(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one prompt, got %v %v", list, err)
	}

	if err := env.client.DeletePrompt(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = env.client.DeletePrompt(ctx, created.ID)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestAnalyzeUploadAndText(t *testing.T) {
	env := newTestEnv(t)
	userID := env.signIn(t)
	promptID := env.api.SeedPrompt(userID, "Summary", "Summarize")
	ctx := context.Background()

	upload, err := env.client.AnalyzeUpload(ctx, "report.pdf", strings.NewReader("%PDF-1.4 body"), AnalysisOptions{PromptID: promptID, AIModel: ModelGPT5})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if upload.DocumentName != "report.pdf" || upload.AIModel != ModelGPT5 || upload.PromptID != promptID {
		t.Fatalf("unexpected upload result %+v", upload)
	}

	text, err := env.client.AnalyzeText(ctx, TextAnalysis{PromptID: promptID, AIModel: ModelClaude4, TextContent: "hello"})
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if text.DocumentName != TextDocumentName {
		t.Fatalf("expected %q, got %q", TextDocumentName, text.DocumentName)
	}

	history, err := env.client.ListAnalyses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 || history[0].ID != text.ID {
		t.Fatalf("expected newest first, got %+v", history)
	}

	dl, err := env.client.DownloadAnalysis(ctx, upload.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if dl.FileName != "analysis_"+upload.ID+".txt" || !strings.HasPrefix(dl.ContentType, "text/plain") {
		t.Fatalf("unexpected download %+v", dl)
	}
	if !strings.Contains(string(dl.Body), "Document: report.pdf") {
		t.Fatalf("unexpected report body %s", dl.Body)
	}
}

func TestAnalyzeRejectsUnknownModel(t *testing.T) {
	env := newTestEnv(t)
	userID := env.signIn(t)
	promptID := env.api.SeedPrompt(userID, "Summary", "Summarize")

	_, err := env.client.AnalyzeText(context.Background(), TextAnalysis{PromptID: promptID, AIModel: "gpt-2", TextContent: "x"})
	if Detail(err) != "Invalid AI model" {
		t.Fatalf("expected model rejection, got %v", err)
	}
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)

	msg, err := env.client.Ping(context.Background())
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !strings.Contains(msg, "running") {
		t.Fatalf("unexpected message %q", msg)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestEveryRequestCarriesRequestIDAndCredential(t *testing.T) {
	creds, err := credential.NewStore(credential.Options{BaseURL: "https://api.example.com"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	_ = creds.Set("tok1")

	var seen []*http.Request
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seen = append(seen, req)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       httpBody(`[]`),
			Request:    req,
		}, nil
	})
	client, err := New(Options{BaseURL: "https://api.example.com", Credentials: creds, Transport: transport})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, _ = client.ListPrompts(context.Background())
	_, _ = client.ListAnalyses(context.Background())

	if len(seen) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seen))
	}
	if seen[0].Header.Get("X-Request-Id") == "" || seen[0].Header.Get("X-Request-Id") == seen[1].Header.Get("X-Request-Id") {
		t.Fatalf("expected distinct request ids")
	}
	for _, req := range seen {
		if req.Header.Get("Authorization") != "Bearer tok1" {
			t.Fatalf("expected bearer header on %s", req.URL.Path)
		}
		if !strings.HasPrefix(req.URL.Path, "/api/") {
			t.Fatalf("expected /api prefix, got %s", req.URL.Path)
		}
		if c, err := req.Cookie(credential.CookieName); err != nil || c.Value != "tok1" {
			t.Fatalf("expected session cookie on %s", req.URL.Path)
		}
	}
}

func TestTimeoutIsOrdinaryFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	telemetry.SetOutput(nil)

	creds, _ := credential.NewStore(credential.Options{BaseURL: server.URL})
	client, err := New(Options{BaseURL: server.URL, Credentials: creds, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	_, err = client.Me(context.Background())
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) || errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if DetailOr(err, "fallback") != "fallback" {
		t.Fatalf("expected fallback detail")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	creds, _ := credential.NewStore(credential.Options{BaseURL: "https://api.example.com"})
	if _, err := New(Options{BaseURL: "not-a-url", Credentials: creds}); err == nil {
		t.Fatalf("expected invalid url error")
	}
	if _, err := New(Options{BaseURL: "https://api.example.com"}); err == nil {
		t.Fatalf("expected missing credentials error")
	}
}
