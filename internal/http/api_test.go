package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tagmark/internal/domain"
	"tagmark/internal/repository/sqlite"
	"tagmark/internal/service"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, id string) (*domain.Tweet, error) {
	return &domain.Tweet{
		ID:        id,
		Text:      "hello from " + id,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Author:    domain.TweetAuthor{ID: "1", Name: "Jack", Username: "jack"},
	}, nil
}

type apiResponse struct {
	Key     string          `json:"key"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T, withTokens bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	tagRepo := sqlite.NewTagRepository(db)
	postRepo := sqlite.NewPostRepository(db)
	ctx := context.Background()
	for _, initFn := range []func(context.Context) error{userRepo.Init, tagRepo.Init, postRepo.Init} {
		if err := initFn(ctx); err != nil {
			t.Fatalf("init schema: %v", err)
		}
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var tokens *service.TokenService
	if withTokens {
		tokens, err = service.NewTokenService("test-secret", service.DefaultTokenTTL)
		if err != nil {
			t.Fatalf("token service: %v", err)
		}
	}

	users := service.NewUserService(userRepo, service.NewPasswordHasher(bcrypt.MinCost))
	posts := service.NewPostService(postRepo, tagRepo, stubFetcher{}, nil, logger)
	handler := NewHandler(users, posts, tokens, Config{Logger: logger})

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, target string, body any, cookie *http.Cookie) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s %s response %q: %v", method, target, rec.Body.String(), err)
	}
	return rec, resp
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func (s *testServer) signup(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rec, resp := s.do(t, http.MethodPost, "/auth/signup", gin.H{
		"email": email, "name": "Ann", "password": "Passw0rd!",
	}, nil)
	if rec.Code != http.StatusCreated || resp.Key != "SUCCESS" {
		t.Fatalf("signup: status %d key %s", rec.Code, resp.Key)
	}
	return sessionCookie(t, rec)
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, resp apiResponse, status int, key string) {
	t.Helper()
	if rec.Code != status || resp.Key != key {
		t.Fatalf("expected %d %s, got %d %s (%s)", status, key, rec.Code, resp.Key, rec.Body.String())
	}
}

func tagNames(tags []TagResponse) []string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return names
}

func TestBookmarkLifecycle(t *testing.T) {
	srv := newTestServer(t, true)
	cookie := srv.signup(t, "ann@example.com")
	if !cookie.HttpOnly || cookie.Path != "/" || cookie.MaxAge <= 0 {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}

	rec, resp := srv.do(t, http.MethodGet, "/", nil, cookie)
	expect(t, rec, resp, http.StatusOK, "SUCCESS")

	rec, resp = srv.do(t, http.MethodPost, "/auth/login", gin.H{
		"email": "ann@example.com", "password": "Wrong0pass",
	}, nil)
	expect(t, rec, resp, http.StatusUnauthorized, "CREDENTIALS")

	rec, resp = srv.do(t, http.MethodPost, "/posts/create", gin.H{
		"url": "https://twitter.com/jack/status/42", "tags": []string{"news", "ai"},
	}, cookie)
	expect(t, rec, resp, http.StatusOK, "SUCCESS")
	var created PostResponse
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode created post: %v", err)
	}
	if created.PostID != "42" || created.Type != domain.PostTypeTwitter {
		t.Fatalf("unexpected created post: %+v", created)
	}
	if got := tagNames(created.Tags); len(got) != 2 || got[0] != "news" || got[1] != "ai" {
		t.Fatalf("unexpected created tags: %v", got)
	}

	rec, resp = srv.do(t, http.MethodPost, "/posts/create", gin.H{
		"url": "https://x.com/jack/status/42", "tags": []string{"other"},
	}, cookie)
	expect(t, rec, resp, http.StatusBadRequest, "DUPLICATE_POST")

	postURL := "/post?type=twitter&id=" + strconv.FormatInt(created.ID, 10)
	rec, resp = srv.do(t, http.MethodGet, postURL, nil, cookie)
	expect(t, rec, resp, http.StatusOK, "SUCCESS")
	var enriched EnrichedPostResponse
	if err := json.Unmarshal(resp.Data, &enriched); err != nil {
		t.Fatalf("decode enriched post: %v", err)
	}
	if enriched.Text != "hello from 42" || enriched.Author.Username != "jack" || enriched.Stale {
		t.Fatalf("unexpected enriched post: %+v", enriched)
	}

	rec, resp = srv.do(t, http.MethodPost, "/posts/update", gin.H{
		"id": created.ID, "tags": []string{"ai"},
	}, cookie)
	expect(t, rec, resp, http.StatusOK, "SUCCESS")
	var updated struct {
		Post PostResponse `json:"post"`
	}
	if err := json.Unmarshal(resp.Data, &updated); err != nil {
		t.Fatalf("decode updated post: %v", err)
	}
	if got := tagNames(updated.Post.Tags); len(got) != 1 || got[0] != "ai" {
		t.Fatalf("unexpected updated tags: %v", got)
	}

	rec, resp = srv.do(t, http.MethodGet, "/tags", nil, cookie)
	expect(t, rec, resp, http.StatusOK, "SUCCESS")
	var tags struct {
		Tags []TagResponse `json:"tags"`
	}
	if err := json.Unmarshal(resp.Data, &tags); err != nil {
		t.Fatalf("decode tags: %v", err)
	}
	if got := tagNames(tags.Tags); len(got) != 1 || got[0] != "ai" {
		t.Fatalf("unexpected user tags: %v", got)
	}

	rec, resp = srv.do(t, http.MethodPost, "/posts/delete", gin.H{"id": created.ID}, cookie)
	expect(t, rec, resp, http.StatusOK, "SUCCESS")

	rec, resp = srv.do(t, http.MethodGet, postURL, nil, cookie)
	expect(t, rec, resp, http.StatusBadRequest, "INVALID_POST")

	rec, resp = srv.do(t, http.MethodPost, "/posts/delete", gin.H{"id": created.ID}, cookie)
	expect(t, rec, resp, http.StatusBadRequest, "POST_NOT_FOUND")
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t, true)

	rec, resp := srv.do(t, http.MethodGet, "/posts", nil, nil)
	expect(t, rec, resp, http.StatusUnauthorized, "UNAUTHENTICATED")

	rec, resp = srv.do(t, http.MethodGet, "/", nil, &http.Cookie{Name: "token", Value: "not-a-jwt"})
	expect(t, rec, resp, http.StatusUnauthorized, "UNAUTHENTICATED")
}

func TestPostsAreScopedToOwner(t *testing.T) {
	srv := newTestServer(t, true)
	ann := srv.signup(t, "ann@example.com")
	bob := srv.signup(t, "bob@example.com")

	rec, resp := srv.do(t, http.MethodPost, "/posts/create", gin.H{
		"url": "https://twitter.com/jack/status/7",
	}, ann)
	expect(t, rec, resp, http.StatusOK, "SUCCESS")
	var created PostResponse
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		t.Fatalf("decode created post: %v", err)
	}

	rec, resp = srv.do(t, http.MethodPost, "/posts/update", gin.H{"id": created.ID, "tags": []string{"x"}}, bob)
	expect(t, rec, resp, http.StatusBadRequest, "POST_NOT_FOUND")

	rec, resp = srv.do(t, http.MethodGet, "/post?id="+strconv.FormatInt(created.ID, 10), nil, bob)
	expect(t, rec, resp, http.StatusBadRequest, "INVALID_POST")

	rec, resp = srv.do(t, http.MethodGet, "/posts", nil, bob)
	expect(t, rec, resp, http.StatusOK, "SUCCESS")
	var list struct {
		Posts []PostResponse `json:"posts"`
	}
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("decode posts: %v", err)
	}
	if len(list.Posts) != 0 {
		t.Fatalf("bob should see no posts, got %d", len(list.Posts))
	}

	// the same tweet is a separate bookmark for another user
	rec, resp = srv.do(t, http.MethodPost, "/posts/create", gin.H{
		"url": "https://twitter.com/jack/status/7",
	}, bob)
	expect(t, rec, resp, http.StatusOK, "SUCCESS")
}

func TestRequestValidation(t *testing.T) {
	srv := newTestServer(t, true)

	tests := []struct {
		name   string
		body   gin.H
		status int
		key    string
	}{
		{"bad email", gin.H{"email": "nope", "name": "Ann", "password": "Passw0rd!"}, http.StatusBadRequest, "EMAIL"},
		{"short password", gin.H{"email": "a@example.com", "name": "Ann", "password": "abc1"}, http.StatusBadRequest, "PASSWORD"},
		{"empty name", gin.H{"email": "a@example.com", "name": " ", "password": "Passw0rd!"}, http.StatusBadRequest, "NAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := srv.do(t, http.MethodPost, "/auth/signup", tt.body, nil)
			expect(t, rec, resp, tt.status, tt.key)
		})
	}

	cookie := srv.signup(t, "ann@example.com")

	rec, resp := srv.do(t, http.MethodPost, "/auth/signup", gin.H{
		"email": "ann@example.com", "name": "Ann", "password": "Passw0rd!",
	}, nil)
	expect(t, rec, resp, http.StatusBadRequest, "USER_ALREADY_EXISTS")

	rec, resp = srv.do(t, http.MethodPost, "/auth/login", gin.H{
		"email": "ghost@example.com", "password": "Passw0rd!",
	}, nil)
	expect(t, rec, resp, http.StatusNotFound, "USER_NOT_FOUND")

	rec, resp = srv.do(t, http.MethodPost, "/posts/create", gin.H{"url": "https://example.com/jack/status/1"}, cookie)
	expect(t, rec, resp, http.StatusBadRequest, "INVALID_URL")

	rec, resp = srv.do(t, http.MethodGet, "/post?id=abc", nil, cookie)
	expect(t, rec, resp, http.StatusBadRequest, "INVALID_ID")
}

func TestMissingTokenServiceIsInternalError(t *testing.T) {
	srv := newTestServer(t, false)

	rec, resp := srv.do(t, http.MethodPost, "/auth/signup", gin.H{
		"email": "ann@example.com", "name": "Ann", "password": "Passw0rd!",
	}, nil)
	expect(t, rec, resp, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR")

	rec, resp = srv.do(t, http.MethodGet, "/", nil, &http.Cookie{Name: "token", Value: "anything"})
	expect(t, rec, resp, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR")

	// a malformed email is reported before the missing token service
	rec, resp = srv.do(t, http.MethodPost, "/auth/signup", gin.H{
		"email": "nope", "name": "Ann", "password": "Passw0rd!",
	}, nil)
	expect(t, rec, resp, http.StatusBadRequest, "EMAIL")

	rec, resp = srv.do(t, http.MethodPost, "/auth/login", gin.H{
		"email": "nope", "password": "Passw0rd!",
	}, nil)
	expect(t, rec, resp, http.StatusBadRequest, "EMAIL")
}

func TestParseSameSite(t *testing.T) {
	cases := map[string]http.SameSite{
		"strict": http.SameSiteStrictMode,
		"None":   http.SameSiteNoneMode,
		"lax":    http.SameSiteLaxMode,
		"":       http.SameSiteLaxMode,
	}
	for in, want := range cases {
		if got := ParseSameSite(in); got != want {
			t.Errorf("ParseSameSite(%q) = %v, want %v", in, got, want)
		}
	}
}
