package fakeapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docwise-client/internal/shared/server/middleware"
	"docwise-client/internal/shared/telemetry"
)

func newTestRouter(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(nil)
	srv := NewServer(Options{})
	return srv, NewRouter(srv, RouterOptions{})
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func detailOf(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode detail from %s: %v", resp.Body.String(), err)
	}
	return body.Detail
}

func TestRegisterThenLogin(t *testing.T) {
	srv, router := newTestRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@b.com", "password": "x", "name": "A",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("register expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out authResponse
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	if out.SessionToken == "" || out.User.Email != "a@b.com" {
		t.Fatalf("unexpected register response %s", resp.Body.String())
	}
	if strings.Contains(resp.Body.String(), "password") {
		t.Fatalf("password leaked in %s", resp.Body.String())
	}

	dup := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@b.com", "password": "y", "name": "A",
	})
	if dup.Code != http.StatusBadRequest || detailOf(t, dup) != "User already exists" {
		t.Fatalf("expected duplicate rejection, got %d %s", dup.Code, dup.Body.String())
	}

	bad := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.com", "password": "wrong"})
	if bad.Code != http.StatusUnauthorized || detailOf(t, bad) != "Invalid credentials" {
		t.Fatalf("expected invalid credentials, got %d %s", bad.Code, bad.Body.String())
	}

	ok := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.com", "password": "x"})
	if ok.Code != http.StatusOK {
		t.Fatalf("login expected 200, got %d", ok.Code)
	}
	if srv.SessionCount() != 2 {
		t.Fatalf("expected 2 sessions, got %d", srv.SessionCount())
	}
}

func TestRegisterMissingFieldsIs422List(t *testing.T) {
	_, router := newTestRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@b.com"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
	var body struct {
		Detail []struct {
			Msg string   `json:"msg"`
			Loc []string `json:"loc"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Detail) != 2 || body.Detail[0].Loc[1] != "password" || body.Detail[1].Loc[1] != "name" {
		t.Fatalf("unexpected detail list %s", resp.Body.String())
	}
}

func TestSessionDataIsSingleUse(t *testing.T) {
	srv, router := newTestRouter(t)
	id := srv.IssueSessionID(Identity{Email: "g@b.com", Name: "G"})

	exchange := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/session-data", nil)
		req.Header.Set("X-Session-ID", id)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	first := exchange()
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	second := exchange()
	if second.Code != http.StatusBadRequest || detailOf(t, second) != "Invalid session ID" {
		t.Fatalf("expected single use, got %d %s", second.Code, second.Body.String())
	}

	missing := doJSON(t, router, http.MethodPost, "/api/auth/session-data", "", nil)
	if missing.Code != http.StatusBadRequest || detailOf(t, missing) != "Session ID required" {
		t.Fatalf("expected missing header rejection, got %d", missing.Code)
	}
	if srv.Calls(http.MethodPost, "/api/auth/session-data") != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", srv.Calls(http.MethodPost, "/api/auth/session-data"))
	}
}

func TestMeRequiresLiveSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(nil)
	srv := NewServer(Options{Now: func() time.Time { return now }})
	router := NewRouter(srv, RouterOptions{})

	userID := srv.SeedUser("a@b.com", "x", "A")
	token := srv.SeedSession(userID)

	if resp := doJSON(t, router, http.MethodGet, "/api/auth/me", "", nil); resp.Code != http.StatusUnauthorized || detailOf(t, resp) != "Not authenticated" {
		t.Fatalf("expected 401 without credential, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"created_at":"2025-03-01T12:00:00.000000"`) {
		t.Fatalf("unexpected me response %d %s", resp.Code, resp.Body.String())
	}

	now = now.Add(8 * 24 * time.Hour)
	if resp := doJSON(t, router, http.MethodGet, "/api/auth/me", token, nil); resp.Code != http.StatusUnauthorized || detailOf(t, resp) != "Session expired" {
		t.Fatalf("expected expired session, got %d", resp.Code)
	}
}

func TestLogoutDropsSessionAndAlwaysSucceeds(t *testing.T) {
	srv, router := newTestRouter(t)
	token := srv.SeedSession(srv.SeedUser("a@b.com", "x", "A"))

	resp := doJSON(t, router, http.MethodPost, "/api/auth/logout", token, nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"success":true`) {
		t.Fatalf("unexpected logout response %d %s", resp.Code, resp.Body.String())
	}
	if srv.SessionCount() != 0 {
		t.Fatalf("expected session dropped")
	}
	if again := doJSON(t, router, http.MethodPost, "/api/auth/logout", "", nil); again.Code != http.StatusOK {
		t.Fatalf("expected anonymous logout 200, got %d", again.Code)
	}
}

func TestPromptCRUDScopedToOwner(t *testing.T) {
	srv, router := newTestRouter(t)
	owner := srv.SeedUser("a@b.com", "x", "A")
	other := srv.SeedUser("c@d.com", "x", "C")
	ownerToken := srv.SeedSession(owner)
	otherToken := srv.SeedSession(other)

	created := doJSON(t, router, http.MethodPost, "/api/prompts", ownerToken, map[string]string{"title": "Summary", "content": "Summarize"})
	if created.Code != http.StatusOK {
		t.Fatalf("create expected 200, got %d", created.Code)
	}
	var p prompt
	_ = json.Unmarshal(created.Body.Bytes(), &p)

	title := "Brief"
	updated := doJSON(t, router, http.MethodPut, "/api/prompts/"+p.ID, ownerToken, map[string]*string{"title": &title})
	if updated.Code != http.StatusOK || !strings.Contains(updated.Body.String(), `"content":"Summarize"`) || !strings.Contains(updated.Body.String(), `"title":"Brief"`) {
		t.Fatalf("expected partial update, got %d %s", updated.Code, updated.Body.String())
	}

	if resp := doJSON(t, router, http.MethodPut, "/api/prompts/"+p.ID, otherToken, map[string]string{"title": "x"}); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other user, got %d", resp.Code)
	}
	if resp := doJSON(t, router, http.MethodGet, "/api/prompts", otherToken, nil); strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Fatalf("expected empty list for other user, got %s", resp.Body.String())
	}

	if resp := doJSON(t, router, http.MethodDelete, "/api/prompts/"+p.ID, ownerToken, nil); resp.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", resp.Code)
	}
	if resp := doJSON(t, router, http.MethodDelete, "/api/prompts/"+p.ID, ownerToken, nil); resp.Code != http.StatusNotFound || detailOf(t, resp) != "Prompt not found" {
		t.Fatalf("expected 404 on second delete, got %d", resp.Code)
	}
}

func TestCreatePromptAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(nil)
	srv := NewServer(Options{AdminEmail: "admin@b.com"})
	router := NewRouter(srv, RouterOptions{})
	token := srv.SeedSession(srv.SeedUser("a@b.com", "x", "A"))

	resp := doJSON(t, router, http.MethodPost, "/api/prompts", token, map[string]string{"title": "t", "content": "c"})
	if resp.Code != http.StatusForbidden || detailOf(t, resp) != "Admin access required" {
		t.Fatalf("expected 403, got %d %s", resp.Code, resp.Body.String())
	}
}

func uploadRequest(t *testing.T, token, fileName, analysisData string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4 test"))
	if analysisData != "" {
		_ = mw.WriteField("analysis_data", analysisData)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/documents/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAnalyzeUploadValidation(t *testing.T) {
	srv, router := newTestRouter(t)
	userID := srv.SeedUser("a@b.com", "x", "A")
	token := srv.SeedSession(userID)
	promptID := srv.SeedPrompt(userID, "Summary", "Summarize")

	tests := []struct {
		name       string
		fileName   string
		data       string
		wantStatus int
		wantDetail string
	}{
		{name: "ok", fileName: "report.PDF", data: `{"prompt_id":"` + promptID + `","ai_model":"gpt-5"}`, wantStatus: http.StatusOK},
		{name: "bad json", fileName: "report.pdf", data: `{`, wantStatus: http.StatusBadRequest},
		{name: "unknown prompt", fileName: "report.pdf", data: `{"prompt_id":"nope","ai_model":"gpt-5"}`, wantStatus: http.StatusNotFound, wantDetail: "Prompt not found"},
		{name: "not pdf", fileName: "report.docx", data: `{"prompt_id":"` + promptID + `","ai_model":"gpt-5"}`, wantStatus: http.StatusBadRequest, wantDetail: "Only PDF files are supported"},
		{name: "bad model", fileName: "report.pdf", data: `{"prompt_id":"` + promptID + `","ai_model":"gpt-2"}`, wantStatus: http.StatusBadRequest, wantDetail: "Invalid AI model"},
		{name: "missing sidecar", fileName: "report.pdf", data: "", wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, uploadRequest(t, token, tt.fileName, tt.data))
			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, resp.Code, resp.Body.String())
			}
			if tt.wantDetail != "" && detailOf(t, resp) != tt.wantDetail {
				t.Fatalf("expected detail %q, got %q", tt.wantDetail, detailOf(t, resp))
			}
		})
	}
}

func TestAnalyzeTextHistoryAndDownload(t *testing.T) {
	srv, router := newTestRouter(t)
	userID := srv.SeedUser("a@b.com", "x", "A")
	token := srv.SeedSession(userID)
	promptID := srv.SeedPrompt(userID, "Summary", "Summarize")

	var ids []string
	for _, text := range []string{"first", "second"} {
		resp := doJSON(t, router, http.MethodPost, "/api/documents/analyze-text", token, map[string]string{
			"prompt_id": promptID, "ai_model": "claude-4", "text_content": text,
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("analyze-text expected 200, got %d: %s", resp.Code, resp.Body.String())
		}
		var a analysis
		_ = json.Unmarshal(resp.Body.Bytes(), &a)
		if a.DocumentName != "Text Input" {
			t.Fatalf("expected default document name, got %q", a.DocumentName)
		}
		ids = append(ids, a.ID)
	}

	list := doJSON(t, router, http.MethodGet, "/api/documents/analyses", token, nil)
	var got []analysis
	_ = json.Unmarshal(list.Body.Bytes(), &got)
	if len(got) != 2 || got[0].ID != ids[1] || got[1].ID != ids[0] {
		t.Fatalf("expected newest first, got %s", list.Body.String())
	}

	dl := doJSON(t, router, http.MethodGet, "/api/documents/analyses/"+ids[0]+"/download", token, nil)
	if dl.Code != http.StatusOK {
		t.Fatalf("download expected 200, got %d", dl.Code)
	}
	if cd := dl.Header().Get("Content-Disposition"); cd != "attachment; filename=analysis_"+ids[0]+".txt" {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if !strings.HasPrefix(dl.Body.String(), "Document Analysis Report") || !strings.Contains(dl.Body.String(), "first") {
		t.Fatalf("unexpected report %s", dl.Body.String())
	}

	if resp := doJSON(t, router, http.MethodGet, "/api/documents/analyses/nope/download", token, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestFailNextAppliesOnce(t *testing.T) {
	srv, router := newTestRouter(t)
	srv.FailNext(http.MethodPost, "/api/auth/logout", http.StatusBadGateway, "upstream down")

	first := doJSON(t, router, http.MethodPost, "/api/auth/logout", "", nil)
	if first.Code != http.StatusBadGateway || detailOf(t, first) != "upstream down" {
		t.Fatalf("expected injected failure, got %d", first.Code)
	}
	if second := doJSON(t, router, http.MethodPost, "/api/auth/logout", "", nil); second.Code != http.StatusOK {
		t.Fatalf("expected recovery, got %d", second.Code)
	}
}

func TestAuthRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(nil)
	srv := NewServer(Options{})
	router := NewRouter(srv, RouterOptions{AuthRateLimit: middleware.RateLimitRule{Rate: 0.001, Burst: 1}})

	body := map[string]string{"email": "a@b.com", "password": "x"}
	if resp := doJSON(t, router, http.MethodPost, "/api/auth/login", "", body); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if resp := doJSON(t, router, http.MethodPost, "/api/auth/login", "", body); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp := doJSON(t, router, http.MethodPost, "/api/auth/logout", "", nil); resp.Code != http.StatusOK {
		t.Fatalf("expected logout unaffected, got %d", resp.Code)
	}
}

func TestAuthRateLimitKeyedOnEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(nil)
	srv := NewServer(Options{})
	router := NewRouter(srv, RouterOptions{AuthRateLimit: middleware.RateLimitRule{Rate: 0.001, Burst: 1}})

	login := func(email, remote string) *httptest.ResponseRecorder {
		t.Helper()
		raw, err := json.Marshal(map[string]string{"email": email, "password": "x"})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = remote
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	if resp := login("victim@example.com", "10.0.0.1:1111"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on first attempt, got %d", resp.Code)
	}
	if resp := login(" Victim@Example.com ", "10.0.0.2:2222"); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected same account from another address to be throttled, got %d", resp.Code)
	}
	resp := login("other@example.com", "10.0.0.1:1111")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected a different account to pass the limiter, got %d", resp.Code)
	}
	if detail := detailOf(t, resp); detail == "Too many requests" {
		t.Fatalf("unexpected throttle detail for a different account")
	}
}
