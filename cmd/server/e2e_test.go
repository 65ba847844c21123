package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PitokDf/express-app-useable/internal/api"
	"github.com/PitokDf/express-app-useable/internal/config"
	"github.com/PitokDf/express-app-useable/internal/domain"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
	"github.com/PitokDf/express-app-useable/internal/redact"
	"github.com/PitokDf/express-app-useable/internal/service/auth"
	"github.com/PitokDf/express-app-useable/internal/store"
)

// memUserStore is an in-memory store.UserStore. Transactions are ignored.
type memUserStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*domain.User
	listCalls int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *memUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return store.NewStoreError("user", "create", "email taken", store.ErrEmailExists).
				WithCode(pgerrcode.UniqueViolation)
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memUserStore) List(_ context.Context, offset, limit int) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++

	all := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []*domain.User{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (s *memUserStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *memUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	cp := *user
	cp.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = &cp
	*user = cp
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *memUserStore) WithTx(*sql.Tx) store.UserStore { return s }

func (s *memUserStore) lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

type envelope struct {
	Success     bool                    `json:"success"`
	Message     string                  `json:"message"`
	MessageCode string                  `json:"messageCode"`
	Data        json.RawMessage         `json:"data"`
	Errors      []domain.FieldViolation `json:"errors"`
}

type userBody struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
}

func testConfig(t *testing.T, transport string) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:                   8080,
			LogLevel:               "debug",
			Environment:            "test",
			Version:                "test",
			ShutdownTimeoutSeconds: 5,
		},
		Auth: config.AuthConfig{
			JWTSecret:            strings.Repeat("k", 32),
			Issuer:               "users-api-test",
			TokenLifetimeMinutes: 60,
			Transport:            transport,
			CookieName:           "access_token",
			BcryptCost:           4,
		},
		Cache: config.CacheConfig{
			Backend:              "memory",
			DefaultTTLSeconds:    60,
			SweepIntervalSeconds: 60,
		},
		Upload: config.UploadConfig{
			Backend:       "disk",
			Dir:           t.TempDir(),
			MaxSizeBytes:  1 << 20,
			AllowedTypes:  []string{"image/png", "text/plain"},
			PublicBaseURL: "/uploads",
		},
		Task:      config.TaskConfig{QueueSize: 16, WorkerCount: 1},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 600, Burst: 100},
	}
}

type testEnv struct {
	cfg    *config.Config
	users  *memUserStore
	db     sqlmock.Sqlmock
	server *httptest.Server
	client *resty.Client
}

func newTestEnv(t *testing.T, transport string) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	cfg := testConfig(t, transport)
	l, _ := logger.NewTestLogger()
	users := newMemUserStore()

	app, err := newApplication(cfg, l, db, users)
	require.NoError(t, err)

	srv := httptest.NewServer(app.setupRouter())
	t.Cleanup(func() {
		srv.Close()
		mock.ExpectClose()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, app.cleanup(ctx))
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := resty.New().
		SetBaseURL(srv.URL).
		SetCookieJar(jar).
		SetHeader("Content-Type", "application/json")

	return &testEnv{cfg: cfg, users: users, db: mock, server: srv, client: client}
}

func decodeEnvelope(t *testing.T, resp *resty.Response) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body(), &env), "body: %s", resp.String())
	return env
}

func (e *testEnv) register(t *testing.T, name, email, password string) userBody {
	t.Helper()
	resp, err := e.client.R().
		SetBody(map[string]string{"name": name, "email": email, "password": password}).
		Post("/api/v1/users/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())

	var u userBody
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &u))
	return u
}

func (e *testEnv) login(t *testing.T, email, password string) *resty.Response {
	t.Helper()
	resp, err := e.client.R().
		SetBody(map[string]string{"email": email, "password": password}).
		Post("/api/v1/users/login")
	require.NoError(t, err)
	return resp
}

func TestUserLifecycle(t *testing.T) {
	env := newTestEnv(t, "cookie")

	alice := env.register(t, "Alice", "alice@example.com", "secret1")
	assert.Equal(t, redact.RedactionPlaceholder, alice.Password)
	assert.Equal(t, "alice@example.com", alice.Email)

	t.Run("duplicate email is rejected", func(t *testing.T) {
		resp, err := env.client.R().
			SetBody(map[string]string{"name": "Other", "email": "alice@example.com", "password": "secret2"}).
			Post("/api/v1/users/register")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.Equal(t, "Email already exists", decodeEnvelope(t, resp).Message)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		resp := env.login(t, "alice@example.com", "not-it")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
		assert.False(t, decodeEnvelope(t, resp).Success)
	})

	t.Run("protected routes need a credential", func(t *testing.T) {
		resp, err := env.client.R().Get("/api/v1/users/" + alice.ID.String())
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	})

	resp := env.login(t, "alice@example.com", "secret1")
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	assert.NotContains(t, resp.String(), `"token"`)
	assert.Equal(t, api.APIVersion, resp.Header().Get("X-API-Version"))

	t.Run("get own profile", func(t *testing.T) {
		resp, err := env.client.R().Get("/api/v1/users/" + alice.ID.String())
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

		var u userBody
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &u))
		assert.Equal(t, alice.ID, u.ID)
		assert.Equal(t, redact.RedactionPlaceholder, u.Password)
	})

	t.Run("list is cached until a write", func(t *testing.T) {
		before := env.users.lists()
		for range 2 {
			resp, err := env.client.R().SetQueryParams(map[string]string{"page": "1", "limit": "10"}).
				Get("/api/v1/users")
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
		}
		assert.Equal(t, before+1, env.users.lists())

		env.register(t, "Bob", "bob@example.com", "secret2")

		resp, err := env.client.R().Get("/api/v1/users")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, before+2, env.users.lists())

		var users []userBody
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &users))
		assert.Len(t, users, 2)
	})

	t.Run("update own name", func(t *testing.T) {
		env.db.ExpectBegin()
		env.db.ExpectCommit()

		resp, err := env.client.R().
			SetBody(map[string]string{"name": "Alice Cooper"}).
			Patch("/api/v1/users/" + alice.ID.String())
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

		var u userBody
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &u))
		assert.Equal(t, "Alice Cooper", u.Name)
		assert.NoError(t, env.db.ExpectationsWereMet())
	})

	t.Run("logout clears the cookie", func(t *testing.T) {
		resp, err := env.client.R().Post("/api/v1/users/logout")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())

		resp, err = env.client.R().Get("/api/v1/users/" + alice.ID.String())
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	})
}

func TestHeaderTransportRevokesOnLogout(t *testing.T) {
	env := newTestEnv(t, "header")
	alice := env.register(t, "Alice", "alice@example.com", "secret1")

	resp := env.login(t, "alice@example.com", "secret1")
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "Bearer "+login.Token, resp.Header().Get("Authorization"))

	authed := func() *resty.Request { return env.client.R().SetAuthToken(login.Token) }

	resp, err := authed().Get("/api/v1/users/" + alice.ID.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = authed().Post("/api/v1/users/logout")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = authed().Get("/api/v1/users/" + alice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, "TOKEN_INVALID", decodeEnvelope(t, resp).MessageCode)
}

func TestDeleteTwiceIsNotFound(t *testing.T) {
	env := newTestEnv(t, "header")
	alice := env.register(t, "Alice", "alice@example.com", "secret1")
	bob := env.register(t, "Bob", "bob@example.com", "secret2")

	resp := env.login(t, "alice@example.com", "secret1")
	require.Equal(t, http.StatusOK, resp.StatusCode())
	token := strings.TrimPrefix(resp.Header().Get("Authorization"), "Bearer ")

	resp, err := env.client.R().SetAuthToken(token).Delete("/api/v1/users/" + bob.ID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	resp, err = env.client.R().SetAuthToken(token).Delete("/api/v1/users/" + alice.ID.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	resp, err = env.client.R().SetAuthToken(token).Delete("/api/v1/users/" + alice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestExpiredCookieIsCleared(t *testing.T) {
	env := newTestEnv(t, "cookie")
	alice := env.register(t, "Alice", "alice@example.com", "secret1")

	issued := time.Now().Add(-3 * time.Hour)
	jwtService, err := auth.NewJWTService(env.cfg.Auth, auth.WithClock(func() time.Time { return issued }))
	require.NoError(t, err)

	user := &domain.User{ID: alice.ID, Name: alice.Name, Email: alice.Email}
	token, err := jwtService.GenerateToken(context.Background(), user)
	require.NoError(t, err)

	resp, err := resty.New().R().
		SetCookie(&http.Cookie{Name: env.cfg.Auth.CookieName, Value: token.Value}).
		Get(env.server.URL + "/api/v1/users/" + alice.ID.String())
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.Equal(t, "TOKEN_EXPIRED", decodeEnvelope(t, resp).MessageCode)

	var cleared *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == env.cfg.Auth.CookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared, "expected the credential cookie to be cleared")
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestValidationErrorsListEveryField(t *testing.T) {
	env := newTestEnv(t, "cookie")

	resp, err := env.client.R().
		SetBody(map[string]string{"name": "", "email": "nope", "password": "123"}).
		Post("/api/v1/users/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode())

	body := decodeEnvelope(t, resp)
	assert.Equal(t, "VALIDATION_FAILED", body.MessageCode)

	fields := make([]string, 0, len(body.Errors))
	for _, v := range body.Errors {
		fields = append(fields, v.Path)
	}
	assert.ElementsMatch(t, []string{"name", "email", "password"}, fields)
}

func TestUploadIsServedBack(t *testing.T) {
	env := newTestEnv(t, "header")
	env.register(t, "Alice", "alice@example.com", "secret1")

	resp := env.login(t, "alice@example.com", "secret1")
	require.Equal(t, http.StatusOK, resp.StatusCode())
	token := strings.TrimPrefix(resp.Header().Get("Authorization"), "Bearer ")

	resp, err := resty.New().SetBaseURL(env.server.URL).R().
		SetAuthToken(token).
		SetFileReader(api.UploadField, "notes.txt", strings.NewReader("hello from the test")).
		Post("/api/v1/uploads")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode(), resp.String())

	var stored struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &stored))
	require.True(t, strings.HasPrefix(stored.URL, "/uploads/"), stored.URL)

	resp, err = resty.New().R().Get(env.server.URL + stored.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "hello from the test", resp.String())

	resp, err = resty.New().R().Get(env.server.URL + "/uploads/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.NotContains(t, resp.String(), strings.TrimPrefix(stored.URL, "/uploads/"))
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, "cookie")

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/api/version"} {
		t.Run(path, func(t *testing.T) {
			resp, err := env.client.R().Get(path)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
			assert.Equal(t, api.APIVersion, resp.Header().Get("X-API-Version"))
		})
	}

	resp, err := env.client.R().Get("/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.False(t, decodeEnvelope(t, resp).Success)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	l, _ := logger.NewTestLogger()
	app, err := newApplication(testConfig(t, "cookie"), l, db, newMemUserStore())
	require.NoError(t, err)

	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, ln, app.setupRouter()) }()

	url := fmt.Sprintf("http://%s/health/live", ln.Addr().String())
	require.Eventually(t, func() bool {
		resp, err := resty.New().R().Get(url)
		return err == nil && resp.StatusCode() == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApplicationStopsWorkersOnFailure(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig(t, "cookie")
	cfg.Upload.Backend = "ftp"
	l, _ := logger.NewTestLogger()

	before := runtime.NumGoroutine()
	app, err := newApplication(cfg, l, db, newMemUserStore())
	require.Error(t, err)
	assert.Nil(t, app)

	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before },
		2*time.Second, 10*time.Millisecond, "task workers or cache sweeper left running")
}
