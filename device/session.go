// Package device manages Zyxel switches through their web interface.
//
// A Session speaks one of three web UI dialects, resolved once per session.
// Writes follow a read-modify-write cycle: the complete form is scraped,
// only the targeted entity is changed and the whole form is submitted again,
// since the switches reset every control missing from a submission.
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/swoga/zyxel-webctl/api"
	"github.com/swoga/zyxel-webctl/form"
	"github.com/swoga/zyxel-webctl/model"
	"go.uber.org/zap"
)

var (
	ErrLoginFailed  = errors.New("login failed")
	ErrMissingToken = errors.New("anti-replay token missing")
	ErrUnsupported  = errors.New("not supported by dialect")
)

type Options struct {
	Address  string
	Username string
	Password string
	// Dialect skips detection unless it is model.DialectAuto.
	Dialect model.Dialect
	Timeout time.Duration
}

// Session holds the state of one connection to a switch. Public operations
// are serialised, a read-modify-write cycle is never interleaved with another
// operation of the same session.
type Session struct {
	log    *zap.Logger
	client *api.Client

	username string
	password string
	override model.Dialect

	mu       sync.Mutex
	dialect  model.Dialect
	drv      driver
	loggedIn bool
	authID   string
	firmware string
}

func New(log *zap.Logger, opts Options) (*Session, error) {
	client, err := api.New(log, opts.Address, opts.Timeout)
	if err != nil {
		return nil, err
	}
	return &Session{
		log:      log,
		client:   client,
		username: opts.Username,
		password: opts.Password,
		override: opts.Dialect,
	}, nil
}

// begin resolves the dialect and logs in on first use.
func (s *Session) begin(ctx context.Context) (driver, error) {
	s.resolveDialect(ctx)
	if s.loggedIn {
		return s.drv, nil
	}

	s.log.Debug("login", zap.Stringer("dialect", s.dialect))
	if err := s.drv.login(ctx); err != nil {
		s.reset()
		if errors.Is(err, ErrLoginFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	s.loggedIn = true
	return s.drv, nil
}

func (s *Session) reset() {
	s.loggedIn = false
	s.authID = ""
	if err := s.client.ResetCookies(); err != nil {
		s.log.Warn("failed to reset cookies", zap.Error(err))
	}
}

// Logout forgets the login locally, the switches have no way to end a web session.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Dialect returns the resolved dialect, detecting it on first use.
func (s *Session) Dialect(ctx context.Context) model.Dialect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveDialect(ctx)
}

// FirmwareVersion returns the firmware reported on the system info page, cached per session.
func (s *Session) FirmwareVersion(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firmware != "" {
		return s.firmware, nil
	}
	drv, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	if _, err := s.systemInfo(ctx, drv); err != nil {
		return "", err
	}
	return s.firmware, nil
}

// GetPage fetches a raw page. On gs1900 a numeric page is a dispatcher command.
func (s *Session) GetPage(ctx context.Context, page string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	return s.fetch(ctx, drv.pagePath(page))
}

// PostForm submits fields as is. On gs1900 everything is posted to the
// dispatcher, a numeric action becomes the cmd field unless one is given.
func (s *Session) PostForm(ctx context.Context, action string, fields []form.Field) (int, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return 0, "", err
	}
	path, fields := drv.formTarget(action, fields)
	return s.client.Post(ctx, path, fields)
}

func (s *Session) fetch(ctx context.Context, path string) (string, error) {
	status, body, err := s.client.Get(ctx, path)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("failed to get page %s: HTTP %d", path, status)
	}
	return body, nil
}

// submit posts a form and applies the acceptance rule shared by all dialects.
func (s *Session) submit(ctx context.Context, path string, payload interface{}) (bool, int, error) {
	status, body, err := s.client.Post(ctx, path, payload)
	if err != nil {
		return false, status, err
	}
	return accepted(status, body), status, nil
}

// accepted is the only success signal the switches give: 200 and no error text.
func accepted(status int, body string) bool {
	return status == 200 && !strings.Contains(body, "Error")
}
