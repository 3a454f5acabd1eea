// Package devserver is an in-memory stand-in for the recruiting backend. It
// serves the same routes and error shapes so the CLI can be exercised
// without the real service.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spigell/hr-pilot/internal/recruiting"
)

const (
	defaultTokenTTL    = 60 * time.Minute
	defaultResumeLimit = 5
	defaultTrialDays   = 14
	shutdownTimeout    = 5 * time.Second

	userKey = "user"
)

type Config struct {
	// Secret signs access tokens. A fixed development secret is used when empty.
	Secret      string        `mapstructure:"secret"`
	TokenTTL    time.Duration `mapstructure:"token-ttl"`
	ResumeLimit int           `mapstructure:"resume-limit"`
}

type user struct {
	recruiting.User
	passwordHash []byte
	used         int
	settings     recruiting.AISettings
}

type Server struct {
	cfg    Config
	logger *zap.Logger
	engine *gin.Engine

	mu         sync.Mutex
	users      map[string]*user
	vacancies  []*recruiting.Vacancy
	candidates []*recruiting.Candidate
	messages   []*recruiting.ChatMessage
	activities []*recruiting.Activity
	nextID     int
}

func New(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Secret == "" {
		cfg.Secret = "hr-pilot-development-secret"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.ResumeLimit <= 0 {
		cfg.ResumeLimit = defaultResumeLimit
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		logger: logger,
		users:  make(map[string]*user),
	}
	s.engine = s.routes()

	return s
}

// Handler returns the HTTP handler serving /api.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// AddUser registers an account directly, bypassing the register endpoint.
func (s *Server) AddUser(email, password, fullName string) (recruiting.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.addUserLocked(email, password, fullName)
	if err != nil {
		return recruiting.User{}, err
	}
	return u.User, nil
}

func (s *Server) addUserLocked(email, password, fullName string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	s.nextID++
	u := &user{
		User: recruiting.User{
			ID:       s.nextID,
			Email:    email,
			FullName: fullName,
			IsActive: true,
		},
		passwordHash: hash,
		settings: recruiting.AISettings{
			ID:           s.nextID,
			UserID:       s.nextID,
			AIRole:       "Recruitment expert",
			SystemPrompt: "You are an experienced HR specialist. Assess candidates objectively against the vacancy.",
			ModelName:    "x-ai/grok-4.1-fast",
			Temperature:  0.7,
		},
	}
	s.users[email] = u
	return u, nil
}

// IssueToken signs an access token for email valid for ttl. A negative ttl
// yields an already expired token.
func (s *Server) IssueToken(email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	root := r.Group("/api")
	root.POST("/auth/login", s.login)
	root.POST("/auth/register", s.register)

	authed := root.Group("", s.authenticate())

	authed.GET("/vacancies/", s.listVacancies)
	authed.POST("/vacancies/", s.createVacancy)
	authed.GET("/vacancies/:id", s.getVacancy)
	authed.POST("/vacancies/:id/publish-demo", s.publishVacancy("demo"))
	authed.POST("/vacancies/:id/publish-hh", s.publishVacancy("hh"))

	authed.GET("/candidates/", s.listCandidates)
	authed.GET("/candidates/subscription/status", s.subscriptionStatus)
	authed.POST("/candidates/upload", s.uploadCandidate)
	authed.GET("/candidates/:id", s.getCandidate)
	authed.POST("/candidates/:id/analyze", s.analyzeCandidate)
	authed.POST("/candidates/:id/generate_outreach", s.generateOutreach)
	authed.POST("/candidates/:id/send_outreach", s.sendOutreach)

	authed.GET("/chat/:id", s.chatHistory)
	authed.POST("/chat/", s.postChat)
	authed.POST("/chat/hr_ask", s.askHR)

	authed.GET("/analytics/", s.analytics)
	authed.GET("/activities/", s.listActivities)
	authed.GET("/ai-settings/", s.getAISettings)
	authed.POST("/ai-settings/", s.updateAISettings)

	return r
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("served request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			abort(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return []byte(s.cfg.Secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			abort(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		s.mu.Lock()
		u, ok := s.users[claims.Subject]
		s.mu.Unlock()
		if !ok {
			abort(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		c.Set(userKey, u)
		c.Next()
	}
}

func (s *Server) login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		abort(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	token, err := s.IssueToken(email, s.cfg.TokenTTL)
	if err != nil {
		abort(c, http.StatusInternalServerError, fmt.Sprintf("issuing token: %v", err))
		return
	}

	c.JSON(http.StatusOK, recruiting.Token{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) register(c *gin.Context) {
	var req recruiting.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"detail": []gin.H{{"loc": []string{"body"}, "msg": "email and password are required", "type": "value_error"}},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Email]; exists {
		abort(c, http.StatusBadRequest, "The user with this email already exists in the system.")
		return
	}

	u, err := s.addUserLocked(req.Email, req.Password, req.FullName)
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.JSON(http.StatusOK, u.User)
}

func currentUser(c *gin.Context) *user {
	return c.MustGet(userKey).(*user)
}

func abort(c *gin.Context, status int, detail any) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
