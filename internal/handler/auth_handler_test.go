package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tastebook/tastebook-api/internal/middleware"
	"github.com/tastebook/tastebook-api/internal/models"
	"github.com/tastebook/tastebook-api/internal/service"
	"github.com/tastebook/tastebook-api/pkg/password"
)

type userStore struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
}

func newUserStore(users ...*models.User) *userStore {
	s := &userStore{byEmail: map[string]*models.User{}, byID: map[string]*models.User{}}
	for _, u := range users {
		s.byEmail[u.Email] = u
		s.byID[u.ID] = u
	}
	return s
}

func (s *userStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "u-new"
	}
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStore) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) error {
	return nil
}

func (s *userStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

type memoryLedger struct {
	revoked map[string]struct{}
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{revoked: map[string]struct{}{}}
}

func (l *memoryLedger) Revoke(ctx context.Context, entry *models.RevocationEntry) error {
	l.revoked[entry.TokenID] = struct{}{}
	return nil
}

func (l *memoryLedger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, ok := l.revoked[tokenID]
	return ok, nil
}

type authFixture struct {
	router *gin.Engine
	svc    *service.AuthService
	store  *userStore
	ledger *memoryLedger
}

func newAuthFixture(t *testing.T, users ...*models.User) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newUserStore(users...)
	ledger := newMemoryLedger()
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:        "test_secret",
		Issuer:        "tastebook",
		AccessExpiry:  time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})
	authSvc := service.NewAuthService(store, ledger, tokens, service.NewValidator(), zap.NewNop())
	userSvc := service.NewUserService(store, service.NewValidator(), zap.NewNop())
	metrics := service.NewMetricsService()
	h := NewAuthHandler(authSvc, userSvc, metrics)

	router := gin.New()
	auth := router.Group("/auth")
	auth.POST("/signup", h.Signup)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/signout", middleware.JWT(authSvc), h.Signout)
	auth.GET("/me", middleware.JWT(authSvc), h.Me)

	return &authFixture{router: router, svc: authSvc, store: store, ledger: ledger}
}

func (f *authFixture) do(t *testing.T, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func verifiedUser(t *testing.T, email, plaintext string) *models.User {
	t.Helper()
	hash, err := password.Hash(plaintext)
	require.NoError(t, err)
	return &models.User{ID: "u1", Username: "testuser", Email: email, PasswordHash: hash, Active: true}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestAuthSignupEndpoint(t *testing.T) {
	f := newAuthFixture(t)

	w := f.do(t, http.MethodPost, "/auth/signup", gin.H{
		"username": "newcook",
		"email":    "new@example.com",
		"password": "Testpass123!",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	envelope := decodeEnvelope(t, w)
	var data models.SignupResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &data))
	assert.Equal(t, "new@example.com", data.Email)
	assert.NotEmpty(t, data.ID)
}

func TestAuthLoginEndpoint(t *testing.T) {
	f := newAuthFixture(t, verifiedUser(t, "test@example.com", "Testpass123!"))

	w := f.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "test@example.com",
		"password": "Testpass123!",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	var data models.LoginResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &data))
	assert.NotEmpty(t, data.AccessToken)
	assert.NotEmpty(t, data.RefreshToken)
	assert.Equal(t, "test@example.com", data.User.Email)
}

func TestAuthLoginInvalidCredentialsShape(t *testing.T) {
	f := newAuthFixture(t, verifiedUser(t, "test@example.com", "Testpass123!"))

	w := f.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "test@example.com",
		"password": "wrongpass",
	}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body struct {
		Error struct {
			Fields map[string][]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Invalid credentials"}, body.Error.Fields["non_field_errors"])
}

func TestAuthSignoutRequiresAccessToken(t *testing.T) {
	f := newAuthFixture(t, verifiedUser(t, "test@example.com", "Testpass123!"))

	w := f.do(t, http.MethodPost, "/auth/signout", gin.H{"refresh": "whatever"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthSignoutThenRefreshFails(t *testing.T) {
	f := newAuthFixture(t, verifiedUser(t, "test@example.com", "Testpass123!"))

	login := f.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "test@example.com",
		"password": "Testpass123!",
	}, "")
	require.Equal(t, http.StatusOK, login.Code)
	envelope := decodeEnvelope(t, login)
	var tokens models.LoginResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &tokens))

	// Refresh works before signout.
	refresh := f.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh": tokens.RefreshToken}, "")
	require.Equal(t, http.StatusOK, refresh.Code)

	signout := f.do(t, http.MethodPost, "/auth/signout", gin.H{"refresh": tokens.RefreshToken}, tokens.AccessToken)
	require.Equal(t, http.StatusOK, signout.Code)

	// And is rejected after.
	refused := f.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh": tokens.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, refused.Code)
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(refused.Body.Bytes(), &body))
	assert.Equal(t, "token is blacklisted", body.Error.Message)
}

func TestAuthMeEndpoint(t *testing.T) {
	f := newAuthFixture(t, verifiedUser(t, "test@example.com", "Testpass123!"))

	login := f.do(t, http.MethodPost, "/auth/login", gin.H{
		"email":    "test@example.com",
		"password": "Testpass123!",
	}, "")
	require.Equal(t, http.StatusOK, login.Code)
	envelope := decodeEnvelope(t, login)
	var tokens models.LoginResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &tokens))

	me := f.do(t, http.MethodGet, "/auth/me", nil, tokens.AccessToken)
	require.Equal(t, http.StatusOK, me.Code)
	meEnvelope := decodeEnvelope(t, me)
	var user models.User
	require.NoError(t, json.Unmarshal(meEnvelope["data"], &user))
	assert.Equal(t, "test@example.com", user.Email)

	// Hashes never leave the API.
	assert.NotContains(t, me.Body.String(), "password_hash")
}

func TestAuthMeWithoutToken(t *testing.T) {
	f := newAuthFixture(t)

	w := f.do(t, http.MethodGet, "/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
