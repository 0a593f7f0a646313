package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"blogapi/internal/database"
	"blogapi/internal/middleware"
	jwtsvc "blogapi/internal/pkg/jwt"
	"blogapi/internal/pkg/password"
	"blogapi/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router *gin.Engine
	now    time.Time
	mu     sync.Mutex
}

func (ts *testServer) clock() time.Time {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.now
}

func (ts *testServer) advance(d time.Duration) {
	ts.mu.Lock()
	ts.now = ts.now.Add(d)
	ts.mu.Unlock()
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	ts := &testServer{now: time.Now().UTC().Truncate(time.Second)}

	refreshRepo := repository.NewRefreshTokenRepository(db)
	issuer := NewTokenIssuer(
		jwtsvc.New("test-access-secret", 15*time.Minute).WithClock(ts.clock),
		jwtsvc.New("test-refresh-secret", 7*24*time.Hour).WithClock(ts.clock),
		refreshRepo,
		WithIssuerClock(ts.clock),
	)
	service := NewService(
		repository.NewUserRepository(db),
		refreshRepo,
		issuer,
		password.New(bcrypt.MinCost),
		nil,
		WithClock(ts.clock),
	)

	r := gin.New()
	NewHandler(service).RegisterRoutes(r.Group("/api"), middleware.JWTAuth(issuer))
	ts.router = r
	return ts
}

func (ts *testServer) do(method, path string, body any, bearer string) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (ts *testServer) register(t *testing.T, email, pw string) map[string]any {
	t.Helper()
	w, body := ts.do(http.MethodPost, "/api/auth/register", gin.H{"email": email, "password": pw, "name": "Author"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return body
}

func (ts *testServer) login(t *testing.T, email, pw string) (access, refresh string) {
	t.Helper()
	w, body := ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": pw}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tokens := body["tokens"].(map[string]any)
	return tokens["accessToken"].(string), tokens["refreshToken"].(string)
}

func TestHandler_Register(t *testing.T) {
	ts := setupServer(t)

	body := ts.register(t, "a@x.com", "Secret123")

	assert.Equal(t, "User registered successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.NotEmpty(t, user["id"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "Author", user["name"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "passwordHash")
}

func TestHandler_Register_DuplicateIgnoresCase(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "A@X.com", "Secret123")

	w, body := ts.do(http.MethodPost, "/api/auth/register", gin.H{"email": "a@x.com", "password": "other"}, "")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "User with this email already exists", body["message"])
	assert.Equal(t, "EMAIL_EXISTS", body["code"])
}

func TestHandler_MissingFields(t *testing.T) {
	ts := setupServer(t)

	cases := []struct {
		path string
		body any
	}{
		{"/api/auth/register", gin.H{"email": "a@x.com"}},
		{"/api/auth/register", gin.H{"password": "x"}},
		{"/api/auth/login", gin.H{"email": "a@x.com"}},
		{"/api/auth/refresh-token", gin.H{}},
	}
	for _, tc := range cases {
		w, body := ts.do(http.MethodPost, tc.path, tc.body, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, tc.path)
		assert.Equal(t, "VALIDATION_ERROR", body["code"], tc.path)
	}

	w, _ := ts.do(http.MethodPost, "/api/auth/register", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Register_PasswordTooLong(t *testing.T) {
	ts := setupServer(t)

	w, body := ts.do(http.MethodPost, "/api/auth/register", gin.H{"email": "long@x.com", "password": strings.Repeat("p", 80)}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, "Password must be at most 72 bytes", body["message"])

	// Nothing was stored, so the address is still free.
	ts.register(t, "long@x.com", strings.Repeat("p", 72))
}

func TestHandler_Login(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "a@x.com", "Secret123")

	w, body := ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": "A@x.COM", "password": "Secret123"}, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Login successful", body["message"])
	tokens := body["tokens"].(map[string]any)
	assert.NotEmpty(t, tokens["accessToken"])
	assert.NotEmpty(t, tokens["refreshToken"])
	assert.NotEqual(t, tokens["accessToken"], tokens["refreshToken"])
}

func TestHandler_Login_UniformFailures(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "a@x.com", "Secret123")

	wWrong, wrong := ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": "a@x.com", "password": "nope"}, "")
	wGhost, ghost := ts.do(http.MethodPost, "/api/auth/login", gin.H{"email": "ghost@x.com", "password": "Secret123"}, "")

	assert.Equal(t, http.StatusUnauthorized, wWrong.Code)
	assert.Equal(t, http.StatusUnauthorized, wGhost.Code)
	assert.Equal(t, "Invalid email or password", wrong["message"])
	assert.Equal(t, wrong, ghost)
}

func TestHandler_ProfileAndLogout(t *testing.T) {
	ts := setupServer(t)
	reg := ts.register(t, "a@x.com", "Secret123")
	access, refresh := ts.login(t, "a@x.com", "Secret123")

	w, body := ts.do(http.MethodGet, "/api/auth/profile", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	user := body["user"].(map[string]any)
	assert.Equal(t, reg["user"].(map[string]any)["id"], user["id"])
	assert.Equal(t, "a@x.com", user["email"])

	w, body = ts.do(http.MethodPost, "/api/auth/logout", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully", body["message"])

	w, body = ts.do(http.MethodPost, "/api/auth/refresh-token", gin.H{"refreshToken": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid refresh token", body["message"])

	// Access tokens stay valid until they expire.
	w, _ = ts.do(http.MethodGet, "/api/auth/profile", nil, access)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_Logout_RevokesEverySession(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "a@x.com", "Secret123")
	access, first := ts.login(t, "a@x.com", "Secret123")
	_, second := ts.login(t, "a@x.com", "Secret123")

	w, _ := ts.do(http.MethodPost, "/api/auth/logout", nil, access)
	require.Equal(t, http.StatusOK, w.Code)

	for _, tok := range []string{first, second} {
		w, _ := ts.do(http.MethodPost, "/api/auth/refresh-token", gin.H{"refreshToken": tok}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	// Logging out again with nothing to revoke still succeeds.
	w, _ = ts.do(http.MethodPost, "/api/auth/logout", nil, access)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_ProtectedRoutes_RequireToken(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "a@x.com", "Secret123")
	_, refresh := ts.login(t, "a@x.com", "Secret123")

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/profile"},
		{http.MethodPost, "/api/auth/logout"},
	} {
		w, body := ts.do(route.method, route.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
		assert.Equal(t, "Access token is required", body["message"])

		w, body = ts.do(route.method, route.path, nil, "garbage")
		assert.Equal(t, http.StatusForbidden, w.Code, route.path)
		assert.Equal(t, "Invalid or expired token", body["message"])

		w, _ = ts.do(route.method, route.path, nil, refresh)
		assert.Equal(t, http.StatusForbidden, w.Code, route.path)
	}
}

func TestHandler_AccessTokenExpires(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "a@x.com", "Secret123")
	access, _ := ts.login(t, "a@x.com", "Secret123")

	ts.advance(16 * time.Minute)

	w, _ := ts.do(http.MethodGet, "/api/auth/profile", nil, access)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_Refresh_RotatesOnce(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "a@x.com", "Secret123")
	_, r1 := ts.login(t, "a@x.com", "Secret123")

	w, body := ts.do(http.MethodPost, "/api/auth/refresh-token", gin.H{"refreshToken": r1}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Token refreshed successfully", body["message"])
	tokens := body["tokens"].(map[string]any)
	r2 := tokens["refreshToken"].(string)
	assert.NotEqual(t, r1, r2)

	w, _ = ts.do(http.MethodGet, "/api/auth/profile", nil, tokens["accessToken"].(string))
	assert.Equal(t, http.StatusOK, w.Code)

	// Replaying the spent token fails; its successor still works.
	w, body = ts.do(http.MethodPost, "/api/auth/refresh-token", gin.H{"refreshToken": r1}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", body["code"])

	w, _ = ts.do(http.MethodPost, "/api/auth/refresh-token", gin.H{"refreshToken": r2}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_Refresh_Expired(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "a@x.com", "Secret123")
	_, refresh := ts.login(t, "a@x.com", "Secret123")

	ts.advance(7*24*time.Hour + time.Minute)

	w, body := ts.do(http.MethodPost, "/api/auth/refresh-token", gin.H{"refreshToken": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid refresh token", body["message"])
}

func TestHandler_Refresh_RejectsAccessToken(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "a@x.com", "Secret123")
	access, _ := ts.login(t, "a@x.com", "Secret123")

	for _, tok := range []string{access, "not-a-jwt", strings.Repeat("a", 64)} {
		w, _ := ts.do(http.MethodPost, "/api/auth/refresh-token", gin.H{"refreshToken": tok}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestHandler_Refresh_ConcurrentReplay(t *testing.T) {
	ts := setupServer(t)
	ts.register(t, "a@x.com", "Secret123")
	_, refresh := ts.login(t, "a@x.com", "Secret123")

	const n = 6
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, _ := ts.do(http.MethodPost, "/api/auth/refresh-token", gin.H{"refreshToken": refresh}, "")
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, code := range codes {
		if code == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusUnauthorized, code)
		}
	}
	assert.Equal(t, 1, ok)
}
