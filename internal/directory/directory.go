// Package directory resolves channel account ids to registered users. The
// dialogue engine consumes it at its interface boundary only: a turn cannot
// start for an account the directory does not know.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ryotagoto/mokuhyo/internal/config"
	"github.com/ryotagoto/mokuhyo/internal/errors"
)

// User is a resolved directory entry.
type User struct {
	UserID      string `json:"user_id"`
	OrgID       string `json:"org_id"`
	DisplayName string `json:"display_name"`
}

// Client looks up a channel account id.
type Client interface {
	Lookup(ctx context.Context, accountID string) (*User, error)
}

// HTTPDirectory talks to the user-directory service.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(cfg config.DirectoryConfig) (*HTTPDirectory, error) {
	if cfg.BaseURL == "" {
		return nil, errors.InvalidInput("directory base_url is empty")
	}
	timeout, err := config.DurationOrDefault(cfg.Timeout, config.DefaultDirectoryTimeout)
	if err != nil {
		return nil, err
	}
	return &HTTPDirectory{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (d *HTTPDirectory) Lookup(ctx context.Context, accountID string) (*User, error) {
	endpoint := fmt.Sprintf("%s/users/%s", d.baseURL, url.PathEscape(accountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build directory request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Transient("directory lookup failed: " + err.Error())
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("account %s: %w", accountID, errors.ErrUserNotRegistered)
	default:
		return nil, errors.Transient(fmt.Sprintf("directory returned %d", resp.StatusCode))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(err, "decode directory response")
	}
	if user.UserID == "" {
		return nil, fmt.Errorf("account %s: %w", accountID, errors.ErrUserNotRegistered)
	}
	if user.OrgID == "" {
		return nil, fmt.Errorf("account %s: %w", accountID, errors.ErrOrganizationNotConfigured)
	}
	return &user, nil
}

// Static is an in-memory directory for tests and local runs.
type Static struct {
	Users map[string]User // keyed by account id
}

func (s *Static) Lookup(ctx context.Context, accountID string) (*User, error) {
	user, ok := s.Users[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, errors.ErrUserNotRegistered)
	}
	if user.OrgID == "" {
		return nil, fmt.Errorf("account %s: %w", accountID, errors.ErrOrganizationNotConfigured)
	}
	return &user, nil
}
