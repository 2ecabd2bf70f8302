package fakeapi

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"docwise-client/internal/shared/metrics"
	"docwise-client/internal/shared/server/middleware"
	"docwise-client/internal/shared/server/respond"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	CORSOrigins []string
	// AuthRateLimit throttles login, register and session exchange per
	// client. The zero value disables it.
	AuthRateLimit middleware.RateLimitRule
	// ExposeMetrics mounts GET /metrics.
	ExposeMetrics bool
}

// NewRouter constructs the gin engine serving s under /api.
func NewRouter(s *Server, opts RouterOptions) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(opts.CORSOrigins),
		s.instrument(),
	)

	if opts.ExposeMetrics {
		r.GET("/metrics", metrics.Handler())
	}

	api := r.Group("/api")
	api.GET("/", s.root)

	public := api.Group("/auth")
	public.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{"AUTH": opts.AuthRateLimit},
		GroupFor: func(c *gin.Context) string {
			if c.FullPath() == "/api/auth/logout" {
				return "DEFAULT"
			}
			return "AUTH"
		},
		KeyFor: credentialEmailKey,
	}))
	public.POST("/register", s.register)
	public.POST("/login", s.login)
	public.POST("/session-data", s.sessionData)
	public.POST("/logout", s.logout)

	authed := api.Group("")
	authed.Use(middleware.Auth(s.lookupSession))
	authed.GET("/auth/me", s.me)
	authed.GET("/prompts", s.listPrompts)
	authed.POST("/prompts", s.createPrompt)
	authed.PUT("/prompts/:id", s.updatePrompt)
	authed.DELETE("/prompts/:id", s.deletePrompt)
	authed.POST("/documents/analyze", s.analyzeUpload)
	authed.POST("/documents/analyze-text", s.analyzeText)
	authed.GET("/documents/analyses", s.listAnalyses)
	authed.GET("/documents/analyses/:id/download", s.downloadAnalysis)

	return r
}

// instrument counts calls per route and applies injected failures and holds.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := routeKey(c.Request.Method, c.FullPath())

		s.mu.Lock()
		s.calls[key]++
		failure, fail := s.failures[key]
		if fail {
			delete(s.failures, key)
		}
		hold := s.hold[key]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if fail {
			respond.Error(c, failure.status, failure.detail)
			return
		}
		c.Next()
	}
}

// credentialEmailKey buckets login and register attempts by the email they
// name, so guessing passwords for one account from many addresses is still
// throttled. Other requests fall back to the default caller key.
func credentialEmailKey(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/auth/login", "/api/auth/register":
	default:
		return ""
	}
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		return ""
	}
	return "email:" + email
}
