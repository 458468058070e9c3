// Package client talks to the notes service over HTTP. A Client is the
// identity provider, the subject store and the note store of the CORE in one
// value: it holds the session token and attaches it to every data request.
//
// ERROR MAPPING:
//
//	401                      → apperror.ErrAuth (and the session is dropped)
//	other 4xx/5xx, transport → apperror.ErrRepository wrapping the kind
//	                           (404 → ErrNotFound, 400 → ErrValidation, ...)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/model"
)

// DefaultTimeout is the per-request timeout of the default HTTP client.
const DefaultTimeout = 15 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu        sync.Mutex
	session   *model.Session
	listeners map[int]func(*model.Session)
	nextID    int
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a signed-out client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: DefaultTimeout},
		logger:    slog.New(slog.DiscardHandler),
		listeners: make(map[int]func(*model.Session)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- identity provider ---

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp creates an account and signs in with it.
func (c *Client) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, "signing up", http.MethodPost, "/auth/signup", "", credentials{email, password}, &sess); err != nil {
		return nil, err
	}
	c.setSession(&sess)
	return &sess, nil
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, "signing in", http.MethodPost, "/auth/signin", "", credentials{email, password}, &sess); err != nil {
		return nil, err
	}
	c.setSession(&sess)
	return &sess, nil
}

// Restore adopts a token issued earlier (e.g. by the GitHub callback) after
// checking it with the service.
func (c *Client) Restore(ctx context.Context, token string) (*model.Session, error) {
	var id model.Identity
	if err := c.do(ctx, "restoring session", http.MethodGet, "/api/me", token, nil, &id); err != nil {
		return nil, err
	}
	sess := &model.Session{AccessToken: token, User: id}
	c.setSession(sess)
	return sess, nil
}

// GetSession returns the session held by the client, or nil.
func (c *Client) GetSession(context.Context) (*model.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, nil
	}
	sess := *c.session
	return &sess, nil
}

// OnAuthStateChange registers fn for every session change.
func (c *Client) OnAuthStateChange(fn func(*model.Session)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// GetCurrentUser asks the service who the token belongs to. It returns nil
// when signed out.
func (c *Client) GetCurrentUser(ctx context.Context) (*model.Identity, error) {
	token := c.token()
	if token == "" {
		return nil, nil
	}
	var id model.Identity
	if err := c.do(ctx, "fetching current user", http.MethodGet, "/api/me", token, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// SignOut revokes the token on the service. The client forgets the session
// even when the request fails.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.token()
	if token == "" {
		return nil
	}
	err := c.do(ctx, "signing out", http.MethodPost, "/auth/logout", token, nil, nil)
	c.setSession(nil)
	return err
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// setSession stores sess and notifies listeners outside the lock.
func (c *Client) setSession(sess *model.Session) {
	c.mu.Lock()
	if model.SameSession(c.session, sess) {
		c.mu.Unlock()
		return
	}
	c.session = sess
	fns := make([]func(*model.Session), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		var copied *model.Session
		if sess != nil {
			s := *sess
			copied = &s
		}
		fn(copied)
	}
}

// --- subject store ---

type subjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"ownerId"`
}

func (c *Client) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	var subjects []model.Subject
	if err := c.authed(ctx, "listing subjects", http.MethodGet, "/api/subjects", nil, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (c *Client) InsertSubject(ctx context.Context, s model.Subject) (*model.Subject, error) {
	var created model.Subject
	req := subjectRequest{Name: s.Name, Description: s.Description, OwnerID: s.OwnerID}
	if err := c.authed(ctx, "creating subject", http.MethodPost, "/api/subjects", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// --- note store ---

type noteRequest struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	IsPublic  bool       `json:"isPublic"`
	SubjectID *uuid.UUID `json:"subjectId"`
	OwnerID   string     `json:"ownerId"`
}

func (c *Client) ListNotes(ctx context.Context, subjectID *uuid.UUID) ([]model.Note, error) {
	path := "/api/notes"
	if subjectID != nil {
		path += "?" + url.Values{"subject": {subjectID.String()}}.Encode()
	}
	var notes []model.Note
	if err := c.authed(ctx, "listing notes", http.MethodGet, path, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) InsertNote(ctx context.Context, n model.Note) (*model.Note, error) {
	var created model.Note
	req := noteRequest{
		Title:     n.Title,
		Content:   n.Content,
		IsPublic:  n.IsPublic,
		SubjectID: n.SubjectID,
		OwnerID:   n.OwnerID,
	}
	if err := c.authed(ctx, "creating note", http.MethodPost, "/api/notes", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return c.authed(ctx, "deleting note", http.MethodDelete, "/api/notes/"+id.String(), nil, nil)
}

// --- transport ---

// authed performs a request that needs the session. A 401 means the token is
// no longer accepted, so the session is dropped and listeners see nil.
func (c *Client) authed(ctx context.Context, op, method, path string, body, out any) error {
	token := c.token()
	if token == "" {
		return apperror.Unauthorized("sign in required")
	}
	err := c.do(ctx, op, method, path, token, body, out)
	if errors.Is(err, apperror.ErrAuth) {
		c.logger.Info("session rejected by server", slog.String("op", op))
		c.setSession(nil)
	}
	return err
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding %s request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: building %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperror.Repository(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.statusError(op, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Repository(op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Message == "" {
		eb.Message = strings.TrimSpace(string(raw))
		if eb.Message == "" {
			eb.Message = http.StatusText(resp.StatusCode)
		}
	}

	c.logger.Debug("request failed",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.String("message", eb.Message),
	)

	var kind error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperror.Unauthorized(eb.Message)
	case http.StatusBadRequest:
		kind = apperror.ValidationFailed(eb.Field, eb.Message)
	case http.StatusNotFound:
		kind = &apperror.AppError{Err: apperror.ErrNotFound, Message: eb.Message}
	case http.StatusForbidden:
		kind = apperror.Forbidden(eb.Message)
	case http.StatusConflict:
		kind = &apperror.AppError{Err: apperror.ErrConflict, Message: eb.Message}
	default:
		kind = fmt.Errorf("server returned %d: %s", resp.StatusCode, eb.Message)
	}
	return apperror.Repository(op, kind)
}
