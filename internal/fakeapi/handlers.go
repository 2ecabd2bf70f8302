package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docwise-client/internal/shared/server/middleware"
	"docwise-client/internal/shared/server/respond"
)

func (s *Server) root(c *gin.Context) {
	respond.OK(c, gin.H{"message": "DocWise API is running"})
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireFields(c, map[string]string{"email": req.Email, "password": req.Password, "name": req.Name}, "email", "password", "name") {
		return
	}

	s.mu.Lock()
	if _, exists := s.byEmail[strings.ToLower(req.Email)]; exists {
		s.mu.Unlock()
		respond.Error(c, http.StatusBadRequest, "User already exists")
		return
	}
	u := s.createUserLocked(req.Email, req.Password, req.Name, "")
	token := s.issueSessionLocked(u.ID)
	out := authResponse{User: *u, SessionToken: token}
	s.mu.Unlock()

	respond.OK(c, out)
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireFields(c, map[string]string{"email": req.Email, "password": req.Password}, "email", "password") {
		return
	}

	s.mu.Lock()
	id, ok := s.byEmail[strings.ToLower(req.Email)]
	u := s.users[id]
	if !ok || u == nil || u.password != req.Password {
		s.mu.Unlock()
		respond.Error(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token := s.issueSessionLocked(u.ID)
	out := authResponse{User: *u, SessionToken: token}
	s.mu.Unlock()

	respond.OK(c, out)
}

// sessionData exchanges a one-time federated session id. Ids are consumed on
// first use whether or not the exchange succeeds.
func (s *Server) sessionData(c *gin.Context) {
	sessionID := strings.TrimSpace(c.GetHeader("X-Session-ID"))
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "Session ID required")
		return
	}

	s.mu.Lock()
	identity, ok := s.federated[sessionID]
	delete(s.federated, sessionID)
	if !ok {
		s.mu.Unlock()
		respond.Error(c, http.StatusBadRequest, "Invalid session ID")
		return
	}
	var u *user
	if id, exists := s.byEmail[strings.ToLower(identity.Email)]; exists {
		u = s.users[id]
	} else {
		u = s.createUserLocked(identity.Email, "", identity.Name, identity.Picture)
	}
	token := s.issueSessionLocked(u.ID)
	out := authResponse{User: *u, SessionToken: token}
	s.mu.Unlock()

	respond.OK(c, out)
}

func (s *Server) logout(c *gin.Context) {
	if token := middleware.SessionTokenFromRequest(c); token != "" {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
	}
	respond.Success(c)
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	u, ok := s.users[middleware.UserIDFromContext(c)]
	var out user
	if ok {
		out = *u
	}
	s.mu.Unlock()

	if !ok {
		respond.Error(c, http.StatusUnauthorized, "User not found")
		return
	}
	respond.OK(c, out)
}

func (s *Server) createPrompt(c *gin.Context) {
	var req promptCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireFields(c, map[string]string{"title": req.Title, "content": req.Content}, "title", "content") {
		return
	}
	userID := middleware.UserIDFromContext(c)

	s.mu.Lock()
	if u := s.users[userID]; s.adminEmail != "" && (u == nil || strings.ToLower(u.Email) != s.adminEmail) {
		s.mu.Unlock()
		respond.Error(c, http.StatusForbidden, "Admin access required")
		return
	}
	p := *s.createPromptLocked(userID, req.Title, req.Content)
	s.mu.Unlock()

	c.Set("promptId", p.ID)
	respond.OK(c, p)
}

func (s *Server) listPrompts(c *gin.Context) {
	s.mu.Lock()
	out := s.promptsForLocked(middleware.UserIDFromContext(c))
	s.mu.Unlock()
	respond.OK(c, out)
}

func (s *Server) updatePrompt(c *gin.Context) {
	var req promptUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	id := c.Param("id")
	c.Set("promptId", id)

	s.mu.Lock()
	p, ok := s.prompts[id]
	if !ok || p.UserID != middleware.UserIDFromContext(c) {
		s.mu.Unlock()
		respond.Error(c, http.StatusNotFound, "Prompt not found")
		return
	}
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Content != nil {
		p.Content = *req.Content
	}
	p.UpdatedAt = naiveTime(s.now())
	out := *p
	s.mu.Unlock()

	respond.OK(c, out)
}

func (s *Server) deletePrompt(c *gin.Context) {
	id := c.Param("id")
	c.Set("promptId", id)

	s.mu.Lock()
	p, ok := s.prompts[id]
	if !ok || p.UserID != middleware.UserIDFromContext(c) {
		s.mu.Unlock()
		respond.Error(c, http.StatusNotFound, "Prompt not found")
		return
	}
	delete(s.prompts, id)
	s.mu.Unlock()

	respond.Success(c)
}

func (s *Server) analyzeUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respond.Validation(c, respond.ValidationIssue{Loc: []string{"body", "file"}, Msg: "field required", Type: "value_error.missing"})
		return
	}
	raw, ok := c.GetPostForm("analysis_data")
	if !ok {
		respond.Validation(c, respond.ValidationIssue{Loc: []string{"body", "analysis_data"}, Msg: "field required", Type: "value_error.missing"})
		return
	}
	var opts analysisOptions
	if err := json.Unmarshal([]byte(raw), &opts); err != nil || opts.PromptID == "" || opts.AIModel == "" {
		reason := "prompt_id and ai_model are required"
		if err != nil {
			reason = err.Error()
		}
		respond.Error(c, http.StatusBadRequest, "Invalid analysis data: "+reason)
		return
	}
	userID := middleware.UserIDFromContext(c)

	s.mu.Lock()
	p, found := s.prompts[opts.PromptID]
	s.mu.Unlock()
	if !found || p.UserID != userID {
		respond.Error(c, http.StatusNotFound, "Prompt not found")
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		respond.Error(c, http.StatusBadRequest, "Only PDF files are supported")
		return
	}
	if !validModel(opts.AIModel) {
		respond.Error(c, http.StatusBadRequest, "Invalid AI model")
		return
	}

	extracted := fmt.Sprintf("[PDF Content from %s]\n\n%d bytes received", header.Filename, header.Size)

	s.mu.Lock()
	a := *s.recordAnalysisLocked(userID, p, header.Filename, opts.AIModel, extracted)
	s.mu.Unlock()

	c.Set("analysisId", a.ID)
	respond.OK(c, a)
}

func (s *Server) analyzeText(c *gin.Context) {
	var req textAnalysisRequest
	if !bindJSON(c, &req) {
		return
	}
	if !requireFields(c, map[string]string{"prompt_id": req.PromptID, "ai_model": req.AIModel, "text_content": req.TextContent}, "prompt_id", "ai_model", "text_content") {
		return
	}
	if req.DocumentName == "" {
		req.DocumentName = "Text Input"
	}
	userID := middleware.UserIDFromContext(c)

	s.mu.Lock()
	p, found := s.prompts[req.PromptID]
	s.mu.Unlock()
	if !found || p.UserID != userID {
		respond.Error(c, http.StatusNotFound, "Prompt not found")
		return
	}
	if !validModel(req.AIModel) {
		respond.Error(c, http.StatusBadRequest, "Invalid AI model")
		return
	}

	extracted := fmt.Sprintf("[Text Content from %s]\n\n%s", req.DocumentName, req.TextContent)

	s.mu.Lock()
	a := *s.recordAnalysisLocked(userID, p, req.DocumentName, req.AIModel, extracted)
	s.mu.Unlock()

	c.Set("analysisId", a.ID)
	respond.OK(c, a)
}

func (s *Server) listAnalyses(c *gin.Context) {
	s.mu.Lock()
	out := s.analysesForLocked(middleware.UserIDFromContext(c))
	s.mu.Unlock()
	respond.OK(c, out)
}

func (s *Server) downloadAnalysis(c *gin.Context) {
	id := c.Param("id")
	c.Set("analysisId", id)
	userID := middleware.UserIDFromContext(c)

	s.mu.Lock()
	var found *analysis
	for _, a := range s.analyses {
		if a.ID == id && a.UserID == userID {
			found = a
			break
		}
	}
	var report string
	if found != nil {
		report = reportText(*found)
	}
	s.mu.Unlock()

	if found == nil {
		respond.Error(c, http.StatusNotFound, "Analysis not found")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=analysis_%s.txt", id))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report))
}

func validModel(model string) bool {
	return model == ModelGPT5 || model == ModelClaude4
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.Validation(c, respond.ValidationIssue{Loc: []string{"body"}, Msg: "Invalid JSON body", Type: "value_error.jsondecode"})
		return false
	}
	return true
}

// requireFields reports 422 for each empty field, in order.
func requireFields(c *gin.Context, values map[string]string, order ...string) bool {
	var issues []respond.ValidationIssue
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			issues = append(issues, respond.ValidationIssue{Loc: []string{"body", name}, Msg: "field required", Type: "value_error.missing"})
		}
	}
	if len(issues) > 0 {
		respond.Validation(c, issues...)
		return false
	}
	return true
}
