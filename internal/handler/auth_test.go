package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/office-booking/internal/config"
	"github.com/iliyamo/office-booking/internal/model"
	"github.com/iliyamo/office-booking/internal/repository"
	"github.com/iliyamo/office-booking/internal/utils"
)

const testSecret = "test-secret"

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]model.Profile
}

func (m *memAccounts) Create(_ context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == p.Email {
			return repository.ErrDuplicate
		}
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memAccounts) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return &p, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Email == email {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrProfileNotFound
}

type storedToken struct {
	userID  string
	exp     time.Time
	revoked bool
}

type memTokens struct {
	mu     sync.Mutex
	byHash map[string]*storedToken
}

func (m *memTokens) StoreRefresh(_ context.Context, userID, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[hash] = &storedToken{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return "", repository.ErrInvalidToken
	}
	return t.userID, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byHash[hash]; ok {
		t.revoked = true
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byHash {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

func (m *memTokens) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.byHash {
		if !t.revoked {
			n++
		}
	}
	return n
}

func authEcho() (*echo.Echo, *memAccounts, *memTokens) {
	accounts := &memAccounts{byID: map[string]model.Profile{}}
	tokens := &memTokens{byHash: map[string]*storedToken{}}
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	h := NewAuthHandler(cfg, accounts, tokens, quietLogger())

	e := newTestEcho(true)
	g := e.Group("/api/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/logout", h.Logout)
	return e, accounts, tokens
}

func decodeAuth(t *testing.T, body []byte) authResp {
	t.Helper()
	var out authResp
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestRegisterAndLogin(t *testing.T) {
	e, accounts, tokens := authEcho()

	rec := do(e, http.MethodPost, "/api/auth/register",
		`{"email":"Ana@Example.com","password":"correct horse","full_name":"Ana"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decodeAuth(t, rec.Body.Bytes())
	assert.Equal(t, "ana@example.com", reg.User.Email)
	assert.Equal(t, model.RoleUser, reg.User.Role)
	assert.NotContains(t, rec.Body.String(), "$2a$")

	claims, err := utils.ParseAccessToken(testSecret, reg.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.Subject)
	assert.Equal(t, "ana@example.com", claims.Email)

	stored := accounts.byID[reg.User.ID]
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
	assert.Equal(t, 1, tokens.active())

	rec = do(e, http.MethodPost, "/api/auth/register", `{"email":"ana@example.com","password":"another one"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Email already registered"}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/auth/login", `{"email":"ANA@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reg.User.ID, decodeAuth(t, rec.Body.Bytes()).User.ID)
	assert.Equal(t, 2, tokens.active())
}

func TestRegisterValidation(t *testing.T) {
	e, _, _ := authEcho()

	rec := do(e, http.MethodPost, "/api/auth/register", `{"email":"not-an-email","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"email"`)
	assert.Contains(t, rec.Body.String(), `"field":"password"`)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e, accounts, _ := authEcho()
	require.Equal(t, http.StatusCreated,
		do(e, http.MethodPost, "/api/auth/register", `{"email":"bo@example.com","password":"letmein123"}`).Code)
	accounts.byID[otherID] = model.Profile{ID: otherID, Email: "nopass@example.com", Role: model.RoleUser}

	for _, body := range []string{
		`{"email":"bo@example.com","password":"wrong-password"}`,
		`{"email":"ghost@example.com","password":"letmein123"}`,
		`{"email":"nopass@example.com","password":"anything"}`,
	} {
		rec := do(e, http.MethodPost, "/api/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, body)
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	e, _, tokens := authEcho()
	rec := do(e, http.MethodPost, "/api/auth/register", `{"email":"cy@example.com","password":"letmein123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeAuth(t, rec.Body.Bytes())

	rec = do(e, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"`+first.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decodeAuth(t, rec.Body.Bytes())
	assert.NotEqual(t, first.Refresh.Token, second.Refresh.Token)
	assert.Equal(t, 1, tokens.active())

	rec = do(e, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"`+first.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid refresh token"}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/api/auth/refresh", `{}`).Code)
}

func TestLogout(t *testing.T) {
	e, _, tokens := authEcho()
	rec := do(e, http.MethodPost, "/api/auth/register", `{"email":"di@example.com","password":"letmein123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeAuth(t, rec.Body.Bytes())
	rec = do(e, http.MethodPost, "/api/auth/login", `{"email":"di@example.com","password":"letmein123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, tokens.active())

	rec = do(e, http.MethodPost, "/api/auth/logout", `{"refresh_token":"`+first.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, tokens.active())

	req := newJSONRequest(http.MethodPost, "/api/auth/logout", "")
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+first.Access.Token)
	rec = serve(e, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, tokens.active())

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/api/auth/logout", "").Code)

	req = newJSONRequest(http.MethodPost, "/api/auth/logout", "")
	req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}
