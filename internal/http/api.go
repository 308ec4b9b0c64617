package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tagmark/internal/domain"
	"tagmark/internal/service"
	"tagmark/internal/twitter"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Config carries the HTTP layer settings.
type Config struct {
	Cookie         CookieConfig
	AllowedOrigins []string
	Logger         *logrus.Logger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users   service.UserService
	posts   service.PostService
	auth    *service.Authenticator
	tokens  *service.TokenService
	cookie  CookieConfig
	origins []string
	logger  *logrus.Logger
}

// NewHandler builds the HTTP handler. A nil tokens makes every endpoint that
// needs a session answer with an internal server error.
func NewHandler(users service.UserService, posts service.PostService, tokens *service.TokenService, cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = "token"
	}
	if cfg.Cookie.SameSite == 0 {
		cfg.Cookie.SameSite = http.SameSiteLaxMode
	}
	return &Handler{
		users:   users,
		posts:   posts,
		auth:    service.NewAuthenticator(tokens, users),
		tokens:  tokens,
		cookie:  cfg.Cookie,
		origins: cfg.AllowedOrigins,
		logger:  cfg.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger))
	if len(h.origins) > 0 {
		router.Use(corsMiddleware(h.origins))
	}

	auth := router.Group("/auth")
	{
		auth.POST("/signup", h.signup)
		auth.POST("/login", h.login)
	}

	protected := router.Group("/", h.requireUser())
	{
		protected.GET("/", h.index)
		protected.GET("/posts", h.listPosts)
		protected.GET("/tags", h.listTags)
		protected.GET("/post", h.getPost)
		protected.POST("/posts/create", h.createPost)
		protected.POST("/posts/update", h.updatePost)
		protected.POST("/posts/delete", h.deletePost)
	}
}

// ParseSameSite maps a config value onto a cookie SameSite mode.
func ParseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createPostRequest struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

type updatePostRequest struct {
	ID   int64    `json:"id" binding:"required"`
	Tags []string `json:"tags"`
}

type deletePostRequest struct {
	ID int64 `json:"id" binding:"required"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, KeyBadRequest, nil)
		return
	}
	if err := service.ValidateEmail(strings.TrimSpace(req.Email)); err != nil {
		h.writeError(c, err)
		return
	}
	if h.tokens == nil {
		h.writeError(c, service.ErrConfiguration)
		return
	}

	user, err := h.users.Signup(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	respond(c, http.StatusCreated, KeySuccess, gin.H{"user": userToResponse(*user)})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, KeyBadRequest, nil)
		return
	}
	if err := service.ValidateEmail(strings.TrimSpace(req.Email)); err != nil {
		h.writeError(c, err)
		return
	}
	if h.tokens == nil {
		h.writeError(c, service.ErrConfiguration)
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	respond(c, http.StatusOK, KeySuccess, gin.H{"user": userToResponse(*user)})
}

func (h *Handler) startSession(c *gin.Context, user *domain.User) bool {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.writeError(c, err)
		return false
	}
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(h.cookie.Name, token, int(h.tokens.TTL()/time.Second), "/", h.cookie.Domain, h.cookie.Secure, true)
	return true
}

func (h *Handler) index(c *gin.Context) {
	respond(c, http.StatusOK, KeySuccess, nil)
}

func (h *Handler) listPosts(c *gin.Context) {
	user, _ := currentUser(c)
	posts, err := h.posts.List(c.Request.Context(), user)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(posts[i])
	}
	respond(c, http.StatusOK, KeySuccess, gin.H{"posts": resp})
}

func (h *Handler) listTags(c *gin.Context) {
	user, _ := currentUser(c)
	tags, err := h.posts.Tags(c.Request.Context(), user)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, KeySuccess, gin.H{"tags": tagsToResponse(tags)})
}

func (h *Handler) getPost(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		respond(c, http.StatusBadRequest, KeyInvalidID, nil)
		return
	}

	user, _ := currentUser(c)
	enriched, err := h.posts.Get(c.Request.Context(), user, id, c.Query("type"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, KeySuccess, enrichedToResponse(*enriched))
}

func (h *Handler) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, KeyBadRequest, nil)
		return
	}

	externalID, ok := twitter.ParseTweetID(req.URL)
	if !ok {
		respond(c, http.StatusBadRequest, KeyInvalidURL, nil)
		return
	}

	user, _ := currentUser(c)
	post, err := h.posts.Create(c.Request.Context(), user, externalID, domain.PostTypeTwitter, req.Tags)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, KeySuccess, postToResponse(*post))
}

func (h *Handler) updatePost(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, KeyBadRequest, nil)
		return
	}

	user, _ := currentUser(c)
	post, err := h.posts.Update(c.Request.Context(), user, req.ID, req.Tags)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, KeySuccess, gin.H{"post": postToResponse(*post)})
}

func (h *Handler) deletePost(c *gin.Context) {
	var req deletePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, KeyBadRequest, nil)
		return
	}

	user, _ := currentUser(c)
	if err := h.posts.Delete(c.Request.Context(), user, req.ID); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, KeySuccess, nil)
}

type UserResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type TagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PostResponse struct {
	ID        int64         `json:"id"`
	PostID    string        `json:"post_id"`
	Type      string        `json:"type"`
	CreatedAt string        `json:"created_at"`
	Tags      []TagResponse `json:"tags"`
}

type EnrichedPostResponse struct {
	ID            int64               `json:"id"`
	PostID        string              `json:"post_id"`
	Type          string              `json:"type"`
	Author        domain.TweetAuthor  `json:"author"`
	Text          string              `json:"text"`
	CreatedAt     string              `json:"created_at"`
	PublicMetrics domain.TweetMetrics `json:"public_metrics"`
	Tags          []TagResponse       `json:"tags"`
	Stale         bool                `json:"stale"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{ID: user.ID, Email: user.Email, Name: user.Name}
}

func tagsToResponse(tags []domain.Tag) []TagResponse {
	resp := make([]TagResponse, len(tags))
	for i := range tags {
		resp[i] = TagResponse{ID: tags[i].ID, Name: tags[i].Name}
	}
	return resp
}

func postToResponse(post domain.Post) PostResponse {
	return PostResponse{
		ID:        post.ID,
		PostID:    post.ExternalID,
		Type:      post.Type,
		CreatedAt: post.CreatedAt.Format(time.RFC3339),
		Tags:      tagsToResponse(post.Tags),
	}
}

func enrichedToResponse(e domain.EnrichedPost) EnrichedPostResponse {
	return EnrichedPostResponse{
		ID:            e.Post.ID,
		PostID:        e.Post.ExternalID,
		Type:          e.Post.Type,
		Author:        e.Tweet.Author,
		Text:          e.Tweet.Text,
		CreatedAt:     e.Tweet.CreatedAt.Format(time.RFC3339),
		PublicMetrics: e.Tweet.PublicMetrics,
		Tags:          tagsToResponse(e.Post.Tags),
		Stale:         e.Stale,
	}
}
