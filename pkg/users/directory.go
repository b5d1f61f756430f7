package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/platinummonkey/benjamin/pkg/observability"
)

// User is a profile record from the user directory
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// ErrUserNotFound indicates the directory has no user with that username
var ErrUserNotFound = errors.New("user not found")

// Directory looks up users by username
type Directory interface {
	FetchByUsername(ctx context.Context, username string) (*User, error)
}

// HTTPDirectory queries the user directory service over HTTP
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
	logger  *observability.Logger
}

// NewHTTPDirectory creates a directory client
func NewHTTPDirectory(baseURL string, timeout time.Duration, logger *observability.Logger) *HTTPDirectory {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FetchByUsername resolves a single user by exact username match.
// Returns ErrUserNotFound when the directory has no such user.
func (d *HTTPDirectory) FetchByUsername(ctx context.Context, username string) (*User, error) {
	endpoint := fmt.Sprintf("%s/users?username=%s&exact=true", d.baseURL, url.QueryEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var matches []User
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if len(matches) > 1 {
		d.logger.WithField("username", username).
			Warn("directory returned multiple users for exact lookup, using first")
	}

	return &matches[0], nil
}
