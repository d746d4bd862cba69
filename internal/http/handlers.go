package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sujalbistaa/confesso/internal/apperr"
	"github.com/sujalbistaa/confesso/internal/auth"
	"github.com/sujalbistaa/confesso/internal/feed"
	"github.com/sujalbistaa/confesso/internal/models"
	"github.com/sujalbistaa/confesso/internal/store"
	"github.com/sujalbistaa/confesso/internal/votes"
	"github.com/sujalbistaa/confesso/internal/ws"
)

// --- Configuration Constants ---
const (
	maxContentLength = 5000
	maxUploadSize    = 5 * 1024 * 1024
	uploadDir        = "./static/uploads"
	rateLimitRPS     = 1.0 / 3.0 // 1 request every 3 seconds
	rateLimitBurst   = 1
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// --- Structs for request binding ---
type CreatePostInput struct {
	Title    string `json:"title" binding:"required,max=300"`
	Kind     string `json:"kind" binding:"required,oneof=text media link"`
	Content  string `json:"content"`
	MediaURL string `json:"mediaUrl"`
	LinkURL  string `json:"linkUrl"`
	Alias    string `json:"alias"` // anonymous display label from the device
}

type VoteInput struct {
	Value int `json:"value" binding:"required,oneof=-1 1"` // Must be 1 or -1
}

type CreateCommentInput struct {
	Text  string `json:"text" binding:"required,min=1,max=2000"`
	Alias string `json:"alias"`
}

type CredentialsInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// WsMessage defines the JSON structure pushed to the feed stream.
type WsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// --- Rate Limiter ---
type IPRateLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*rate.Limiter),
		rps:      r,
		burst:    b,
	}
}

func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	limiter, exists := rl.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[ip] = limiter
	}
	return limiter
}

func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please wait."})
			return
		}
		c.Next()
	}
}

// --- Handlers ---
type Env struct {
	Contents *store.ContentStore
	Ledger   *votes.Ledger
	Auth     *auth.Service
	Hub      *ws.Hub
}

// statusFor maps the shared error taxonomy to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (e *Env) abortWith(c *gin.Context, err error, fallback string) {
	log.Printf("%s: %v", fallback, err)
	msg := fallback
	if errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrNotFound) {
		msg = err.Error()
	}
	c.JSON(statusFor(err), gin.H{"error": msg})
}

// GetPosts returns the ranked feed. Query params: sort=new|popular, q=filter.
func (e *Env) GetPosts(c *gin.Context) {
	posts, err := e.Contents.ListPosts(c.Request.Context())
	if err != nil {
		e.abortWith(c, err, "Failed to fetch posts")
		return
	}
	ranked := feed.Rank(posts, c.DefaultQuery("sort", feed.SortNew), c.Query("q"))
	c.JSON(http.StatusOK, ranked)
}

// GetPost returns one post with its comments (oldest first) and, when the
// request carries a voter id, that voter's current vote.
func (e *Env) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := e.Contents.GetPost(ctx, c.Param("id"))
	if err != nil {
		e.abortWith(c, err, "Failed to fetch post")
		return
	}
	comments, err := e.Contents.ListComments(ctx, post.ID)
	if err != nil {
		e.abortWith(c, err, "Failed to fetch comments")
		return
	}

	userVote := votes.None
	if voterID := c.GetHeader("X-Voter-ID"); voterID != "" {
		userVote, err = e.Ledger.VoteFor(ctx, post.ID, voterID)
		if err != nil {
			e.abortWith(c, err, "Failed to fetch vote")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"post":     post,
		"comments": comments,
		"userVote": userVote,
	})
}

func (e *Env) CreatePost(c *gin.Context) {
	var input CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	post, err := e.buildPost(c, input)
	if err != nil {
		e.abortWith(c, err, "Invalid post")
		return
	}
	if err := e.Contents.InsertPost(c.Request.Context(), post); err != nil {
		e.abortWith(c, err, "Failed to create post")
		return
	}

	e.broadcastMessage(WsMessage{Type: "new_post", Data: post})
	c.JSON(http.StatusCreated, post)
}

// buildPost validates the input against the kind rules and freezes the
// author label before anything touches the store.
func (e *Env) buildPost(c *gin.Context, input CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrValidation)
	}
	if len(title) > models.MaxTitleLength {
		return nil, fmt.Errorf("%w: title is longer than %d characters", apperr.ErrValidation, models.MaxTitleLength)
	}

	post := &models.Post{
		Title: title,
		Kind:  input.Kind,
	}
	switch input.Kind {
	case models.KindText:
		post.Content = strings.TrimSpace(input.Content)
		if post.Content == "" {
			return nil, fmt.Errorf("%w: confession text is required", apperr.ErrValidation)
		}
		if len(post.Content) > maxContentLength {
			return nil, fmt.Errorf("%w: confession is longer than %d characters", apperr.ErrValidation, maxContentLength)
		}
	case models.KindMedia:
		post.MediaURL = strings.TrimSpace(input.MediaURL)
		if post.MediaURL == "" {
			return nil, fmt.Errorf("%w: an image is required", apperr.ErrValidation)
		}
		post.Content = strings.TrimSpace(input.Content)
	case models.KindLink:
		post.LinkURL = strings.TrimSpace(input.LinkURL)
		if post.LinkURL == "" {
			return nil, fmt.Errorf("%w: a link is required", apperr.ErrValidation)
		}
		post.Content = strings.TrimSpace(input.Content)
		if post.Content == "" {
			post.Content = post.LinkURL
		}
	default:
		return nil, fmt.Errorf("%w: unknown post kind %q", apperr.ErrValidation, input.Kind)
	}

	label, err := e.resolveAuthorLabel(c, input.Alias)
	if err != nil {
		return nil, err
	}
	post.AuthorLabel = label
	return post, nil
}

// resolveAuthorLabel prefers the signed-in account's label, then the device
// alias, then a plain "Anonymous". Resolved once, frozen on the record;
// later identity changes never rewrite old content.
func (e *Env) resolveAuthorLabel(c *gin.Context, alias string) (string, error) {
	if bearer := c.GetHeader("Authorization"); bearer != "" {
		user, err := e.Auth.CurrentUser(c.Request.Context(), bearer)
		if err != nil {
			return "", fmt.Errorf("%w: %v", apperr.ErrValidation, err)
		}
		if user != nil {
			return auth.DisplayLabel(user), nil
		}
	}
	if alias = strings.TrimSpace(alias); alias != "" {
		return alias, nil
	}
	return "Anonymous", nil
}

// VoteOnPost runs one vote action through the ledger and aggregator. The
// voter id comes from the X-Voter-ID header the client mints per device.
func (e *Env) VoteOnPost(c *gin.Context) {
	voterID := c.GetHeader("X-Voter-ID")
	if voterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing X-Voter-ID header"})
		return
	}
	var input VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	result, err := e.Ledger.CastVote(c.Request.Context(), c.Param("id"), voterID, input.Value)
	if err != nil {
		e.abortWith(c, err, "Failed to process vote")
		return
	}

	payload := gin.H{
		"id":        c.Param("id"),
		"upvotes":   result.Upvotes,
		"downvotes": result.Downvotes,
		"score":     result.Upvotes - result.Downvotes,
	}
	e.broadcastMessage(WsMessage{Type: "vote", Data: payload})

	c.JSON(http.StatusOK, result)
}

func (e *Env) CreateComment(c *gin.Context) {
	var input CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment text is required"})
		return
	}
	label, err := e.resolveAuthorLabel(c, input.Alias)
	if err != nil {
		e.abortWith(c, err, "Invalid comment")
		return
	}

	comment := &models.Comment{
		PostID:      c.Param("id"),
		AuthorLabel: label,
		Text:        text,
	}
	if err := e.Contents.InsertComment(c.Request.Context(), comment); err != nil {
		e.abortWith(c, err, "Failed to create comment")
		return
	}

	e.broadcastMessage(WsMessage{Type: "new_comment", Data: comment})
	c.JSON(http.StatusCreated, comment)
}

// UploadImage stores an uploaded image on local disk and returns its URL.
// Validated here, before the post-creation path ever sees the URL.
func (e *Env) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is missing or larger than 5MB"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type. Allowed: JPEG, PNG, GIF, WEBP"})
		return
	}

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		log.Printf("Error creating upload dir: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(uploadDir, name))
	if err != nil {
		log.Printf("Error creating upload file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		log.Printf("Error writing upload file: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": "/uploads/" + name})
}

// DeletePost hides a post from the feed. Admin only; the ledger and the
// comments stay in place under the hidden row.
func (e *Env) DeletePost(c *gin.Context) {
	if err := e.Contents.HidePost(c.Request.Context(), c.Param("id")); err != nil {
		e.abortWith(c, err, "Failed to delete post")
		return
	}

	e.broadcastMessage(WsMessage{Type: "delete", Data: gin.H{"id": c.Param("id")}})
	c.JSON(http.StatusOK, gin.H{"message": "Post hidden successfully"})
}

func (e *Env) Register(c *gin.Context) {
	var input CredentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	user, err := e.Auth.Register(c.Request.Context(), input.Email, input.Password, input.Name)
	if err != nil {
		e.abortWith(c, err, "Failed to register")
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (e *Env) Login(c *gin.Context) {
	var input CredentialsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	token, user, err := e.Auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		e.abortWith(c, err, "Failed to sign in")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// broadcastMessage pushes one event to the feed stream.
func (e *Env) broadcastMessage(msg WsMessage) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling WS message: %v", err)
		return
	}
	e.Hub.Broadcast <- jsonMsg
}
