package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	httpclient "github.com/handiism/gphotos-backup/internal/http"
	ioutils "github.com/handiism/gphotos-backup/internal/io"
	"github.com/handiism/gphotos-backup/internal/model"
	"github.com/handiism/gphotos-backup/internal/photos"
)

// File names inside the credentials directory.
const (
	TokenFile        = "token.json"
	ClientSecretFile = "client_secret.json"
)

// DefaultRedirectPort is the loopback port of the consent redirect server.
const DefaultRedirectPort = 8080

const successPage = `<html><body><p>Authentication complete. You can close this window.</p></body></html>`

// ErrNoClientSecret is returned when client_secret.json is missing.
var ErrNoClientSecret = errors.New("client_secret.json not found; create an OAuth client ID of type Desktop app in the Google Cloud Console, enable the Photos Library API and save the downloaded JSON as client_secret.json in the credentials directory")

// Manager manages the OAuth credential of one credentials directory.
// It is safe for concurrent use.
type Manager struct {
	dir     string
	port    int
	timeout time.Duration
	prompt  func(authURL string)
	logger  *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRedirectPort sets the port of the loopback consent server.
func WithRedirectPort(port int) Option {
	return func(m *Manager) {
		m.port = port
	}
}

// WithPrompt sets how the authorization URL is shown to the user.
func WithPrompt(prompt func(authURL string)) Option {
	return func(m *Manager) {
		m.prompt = prompt
	}
}

// WithTimeout sets the timeout of every request made by HTTPClient.
// A non-positive timeout keeps httpclient.DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// NewManager creates a manager for the credentials in dir.
func NewManager(dir string, opts ...Option) *Manager {
	m := &Manager{
		dir:     dir,
		port:    DefaultRedirectPort,
		timeout: httpclient.DefaultTimeout,
		logger:  zap.NewNop(),
		prompt: func(authURL string) {
			fmt.Fprintf(os.Stderr, "Open the following URL in your browser to authorize access:\n\n%s\n\n", authURL)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TokenPath returns the path of the cached token.
func (m *Manager) TokenPath() string {
	return filepath.Join(m.dir, TokenFile)
}

// ClientSecretPath returns the path of the OAuth client secret.
func (m *Manager) ClientSecretPath() string {
	return filepath.Join(m.dir, ClientSecretFile)
}

// Credential returns a valid token, running the consent flow if there is
// no usable cached token.
func (m *Manager) Credential(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.Valid() {
		return m.token, nil
	}

	cfg, err := m.config()
	if err != nil {
		return nil, err
	}

	if tok, err := m.cachedToken(ctx, cfg); err == nil {
		m.token = tok
		return tok, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("Cached token unusable, starting consent flow", zap.Error(err))
	}

	tok, err := m.consent(ctx, cfg)
	if err != nil {
		return nil, authError(err, "consent flow failed")
	}
	if err := m.saveToken(tok); err != nil {
		return nil, err
	}

	m.logger.Info("Authorization complete", zap.String("token", m.TokenPath()))
	m.token = tok
	return tok, nil
}

// HTTPClient returns a client that authorizes requests with the managed
// credential and refreshes it transparently. Refreshed tokens are persisted.
func (m *Manager) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := m.Credential(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := m.config()
	if err != nil {
		return nil, err
	}

	base := &http.Client{Timeout: m.timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	ts := &savingTokenSource{
		base:    oauth2.ReuseTokenSource(tok, cfg.TokenSource(ctx, tok)),
		manager: m,
		last:    tok.AccessToken,
	}
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = m.timeout
	return client, nil
}

// IsAuthenticated reports whether a usable token exists without starting
// the consent flow.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.Valid() {
		return true
	}

	cfg, err := m.config()
	if err != nil {
		return false
	}

	tok, err := m.cachedToken(ctx, cfg)
	if err != nil {
		return false
	}
	m.token = tok
	return true
}

// Revoke deletes the cached token. It reports whether a token was removed.
func (m *Manager) Revoke() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = nil
	if err := os.Remove(m.TokenPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, authError(err, "failed to delete token")
	}

	m.logger.Info("Token revoked", zap.String("token", m.TokenPath()))
	return true, nil
}

func (m *Manager) config() (*oauth2.Config, error) {
	data, err := os.ReadFile(m.ClientSecretPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, authError(ErrNoClientSecret, "missing client secret")
		}
		return nil, authError(err, "failed to read client secret")
	}

	cfg, err := google.ConfigFromJSON(data, photos.ReadonlyScope)
	if err != nil {
		return nil, authError(err, "failed to parse client secret")
	}
	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/", m.port)
	return cfg, nil
}

// cachedToken loads token.json and refreshes it when expired. It returns an
// error wrapping os.ErrNotExist when there is no cached token.
func (m *Manager) cachedToken(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	tok, err := loadToken(m.TokenPath())
	if err != nil {
		return nil, err
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, goerr.New("cached token expired and has no refresh token")
	}

	refreshed, err := cfg.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to refresh token")
	}
	if err := m.saveToken(refreshed); err != nil {
		return nil, err
	}

	m.logger.Debug("Token refreshed", zap.Time("expiry", refreshed.Expiry))
	return refreshed, nil
}

// consent runs the authorization code flow against a loopback redirect.
func (m *Manager) consent(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", m.port))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to start redirect server", goerr.V("port", m.port))
	}

	state := uuid.NewString()
	codes := make(chan string, 1)
	errs := make(chan error, 1)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			if e := q.Get("error"); e != "" {
				http.Error(w, "authorization denied", http.StatusForbidden)
				select {
				case errs <- goerr.New("authorization denied", goerr.V("error", e)):
				default:
				}
				return
			}
			code := q.Get("code")
			if code == "" {
				http.Error(w, "missing code", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(successPage))
			select {
			case codes <- code:
			default:
			}
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(listener) }()
	defer func() { _ = srv.Close() }()

	m.prompt(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, goerr.Wrap(ctx.Err(), "waiting for authorization")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to exchange authorization code")
	}
	return tok, nil
}

func (m *Manager) saveToken(tok *oauth2.Token) error {
	if err := ioutils.EnsureDir(m.dir); err != nil {
		return authError(err, "failed to create credentials directory")
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return authError(err, "failed to encode token")
	}
	if err := atomic.WriteFile(m.TokenPath(), bytes.NewReader(data)); err != nil {
		return authError(err, "failed to save token")
	}
	return nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tok := new(oauth2.Token)
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, goerr.Wrap(err, "failed to parse token", goerr.V("path", path))
	}
	return tok, nil
}

func authError(err error, msg string) error {
	return goerr.Wrap(&model.AuthError{Err: err}, msg)
}

// savingTokenSource persists every newly issued token.
type savingTokenSource struct {
	base    oauth2.TokenSource
	manager *Manager

	mu   sync.Mutex
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, &model.AuthError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.manager.saveToken(tok); err != nil {
			s.manager.logger.Warn("Cannot persist refreshed token", zap.Error(err))
		}
		s.manager.mu.Lock()
		s.manager.token = tok
		s.manager.mu.Unlock()
	}
	return tok, nil
}
