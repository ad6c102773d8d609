package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/Armour007/wellness-backend/internal"
	"github.com/Armour007/wellness-backend/internal/utils"
)

const loginQuery = `FROM users WHERE username=\$1 OR lower\(email\)=lower\(\$1\)`

func withSecret(t *testing.T) {
	t.Helper()
	prevSecret, prevTTL := jwtSecret, tokenTTL
	SetAuth([]byte("test-secret"), 15*time.Minute)
	t.Cleanup(func() { jwtSecret, tokenTTL = prevSecret, prevTTL })
}

func hashedUser(t *testing.T, id int64, password string, active bool) database.User {
	t.Helper()
	u := testUser(id, database.RoleEmployee, nil)
	h, err := utils.HashPassword(password)
	require.NoError(t, err)
	u.HashedPassword = h
	u.IsActive = active
	return u
}

func TestLogin_IssuesBearerToken(t *testing.T) {
	mock := setupDB(t)
	withSecret(t)
	u := hashedUser(t, 7, "correct horse", true)
	mock.ExpectQuery(loginQuery).WithArgs("user7").WillReturnRows(userRows(u))

	w := call(Login, nil, http.MethodPost, "/auth/login", map[string]string{"username": "user7", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tok TokenResponse
	decode(t, w, &tok)
	assert.Equal(t, "bearer", tok.TokenType)
	assert.Equal(t, 900, tok.ExpiresIn)
	claims, err := utils.ParseJWT(jwtSecret, tok.AccessToken)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), uid)
}

func TestLogin_AcceptsFormEncodedEmail(t *testing.T) {
	mock := setupDB(t)
	withSecret(t)
	u := hashedUser(t, 3, "pw-pw-pw-pw", true)
	mock.ExpectQuery(loginQuery).WithArgs("User3@Example.com").WillReturnRows(userRows(u))

	form := url.Values{"username": {"User3@Example.com"}, "password": {"pw-pw-pw-pw"}}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	Login(c)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLogin_Failures(t *testing.T) {
	withSecret(t)
	cases := []struct {
		name    string
		rows    func(t *testing.T) *sqlmock.Rows
		pw      string
		wantMsg string
	}{
		{"unknown user", func(*testing.T) *sqlmock.Rows { return sqlmock.NewRows(userCols) }, "x", "Incorrect username or password"},
		{"wrong password", func(t *testing.T) *sqlmock.Rows { return userRows(hashedUser(t, 1, "right-one", true)) }, "wrong-one", "Incorrect username or password"},
		{"inactive", func(t *testing.T) *sqlmock.Rows { return userRows(hashedUser(t, 1, "right-one", false)) }, "right-one", "Inactive user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := setupDB(t)
			mock.ExpectQuery(loginQuery).WillReturnRows(tc.rows(t))
			w := call(Login, nil, http.MethodPost, "/auth/login", map[string]string{"username": "someone", "password": tc.pw})
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			assert.Equal(t, tc.wantMsg, errorOf(t, w))
		})
	}
}

func TestLogin_UnknownUserStillComparesPassword(t *testing.T) {
	mock := setupDB(t)
	var checked []string
	prev := missingUserCheck
	missingUserCheck = func(pw string) bool {
		checked = append(checked, pw)
		return false
	}
	t.Cleanup(func() { missingUserCheck = prev })

	mock.ExpectQuery(loginQuery).WillReturnRows(sqlmock.NewRows(userCols))
	w := call(Login, nil, http.MethodPost, "/auth/login", map[string]string{"username": "ghost", "password": "guess-123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, []string{"guess-123"}, checked)
}

func TestLogin_MissingFields(t *testing.T) {
	setupDB(t)
	w := call(Login, nil, http.MethodPost, "/auth/login", map[string]string{"username": "only"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func authedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		u, _ := currentUser(c)
		c.JSON(http.StatusOK, gin.H{"id": u.ID})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	withSecret(t)
	good, err := utils.GenerateJWT(jwtSecret, time.Minute, 5, "EMPLOYEE", nil)
	require.NoError(t, err)
	forged, err := utils.GenerateJWT([]byte("other"), time.Minute, 5, "EMPLOYEE", nil)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		rows   *sqlmock.Rows
		want   int
	}{
		{"missing header", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized},
		{"bad signature", "Bearer " + forged, nil, http.StatusUnauthorized},
		{"deleted user", "Bearer " + good, sqlmock.NewRows(userCols), http.StatusUnauthorized},
		{"inactive user", "Bearer " + good, userRows(func() database.User { u := testUser(5, database.RoleEmployee, nil); u.IsActive = false; return u }()), http.StatusUnauthorized},
		{"ok", "bearer " + good, userRows(testUser(5, database.RoleEmployee, nil)), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := setupDB(t)
			if tc.rows != nil {
				mock.ExpectQuery(`FROM users WHERE id=\$1`).WithArgs(int64(5)).WillReturnRows(tc.rows)
			}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			authedRouter().ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestLoginRateLimitMiddleware_LocalBucket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prev := redisClient
	redisClient = nil
	t.Cleanup(func() { redisClient = prev })

	r := gin.New()
	r.POST("/login", LoginRateLimitMiddleware(2), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.9:5555"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestIdempotencyMiddleware_ReplaysFirstResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prev := redisClient
	redisClient = nil
	t.Cleanup(func() { redisClient = prev })

	hits := 0
	r := gin.New()
	r.POST("/submit", func(c *gin.Context) { c.Set(ctxUserID, int64(11)) }, IdempotencyMiddleware(), func(c *gin.Context) {
		hits++
		c.JSON(http.StatusCreated, gin.H{"n": hits})
	})
	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("Idempotency-Key", "replay-me")
		r.ServeHTTP(w, req)
		return w
	}
	first, second := send(), send()
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotent-Replay"))
	assert.Equal(t, 1, hits)
}
