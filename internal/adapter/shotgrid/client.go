// Package shotgrid is a small client for the ShotGrid REST API. It reads and
// updates entities and lists the active users of the site.
package shotgrid

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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

const (
	apiPrefix   = "/api/v1"
	searchMedia = "application/vnd+shotgun.api3_array+json"
	pageSize    = 500

	// Tokens are renewed this long before they expire.
	tokenSlack = 30 * time.Second
)

// Options configure a Client.
type Options struct {
	ServerURL  string
	ScriptName string
	ScriptKey  string
	Timeout    time.Duration

	// ExcludeLogins are service or template accounts never matched to chat
	// members.
	ExcludeLogins []string
}

// Client talks to one ShotGrid site with script credentials.
type Client struct {
	baseURL    string
	scriptName string
	scriptKey  string
	exclude    map[string]struct{}
	httpClient *http.Client
	log        *slog.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

// New creates a Client.
func New(logger *slog.Logger, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	exclude := make(map[string]struct{}, len(opts.ExcludeLogins))
	for _, login := range opts.ExcludeLogins {
		exclude[login] = struct{}{}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.ServerURL, "/"),
		scriptName: opts.ScriptName,
		scriptKey:  opts.ScriptKey,
		exclude:    exclude,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "shotgrid"),
		now:        time.Now,
	}
}

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// FindOne returns the first entity matching filters, or nil when none does.
func (c *Client) FindOne(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error) {
	records, err := c.find(ctx, entityType, filters, fields, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Find returns every entity matching filters. limit <= 0 reads all pages.
func (c *Client) Find(ctx context.Context, entityType string, filters []domain.Filter, fields []string, limit int) ([]domain.Record, error) {
	size := pageSize
	if limit > 0 && limit < size {
		size = limit
	}

	var all []domain.Record
	for page := 1; ; page++ {
		records, err := c.find(ctx, entityType, filters, fields, page, size)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(records) < size || (limit > 0 && len(all) >= limit) {
			break
		}
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (c *Client) find(ctx context.Context, entityType string, filters []domain.Filter, fields []string, page, size int) ([]domain.Record, error) {
	q := url.Values{}
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}
	q.Set("page[number]", strconv.Itoa(page))
	q.Set("page[size]", strconv.Itoa(size))

	body, err := json.Marshal(map[string]any{"filters": encodeFilters(filters)})
	if err != nil {
		return nil, fmt.Errorf("shotgrid: encode filters: %w", err)
	}

	path := apiPrefix + "/entity/" + Collection(entityType) + "/_search?" + q.Encode()
	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, path, searchMedia, body, &resp); err != nil {
		return nil, fmt.Errorf("shotgrid: find %s: %w", entityType, err)
	}

	records := make([]domain.Record, len(resp.Data))
	for i, e := range resp.Data {
		records[i] = e.record()
	}
	c.log.DebugContext(ctx, "shotgrid find",
		slog.String("entity", entityType),
		slog.Int("page", page),
		slog.Int("records", len(records)),
	)
	return records, nil
}

// Update sets fields on one entity.
func (c *Client) Update(ctx context.Context, entityType string, id int, fields map[string]any) error {
	body, err := json.Marshal(encodeFields(fields))
	if err != nil {
		return fmt.Errorf("shotgrid: encode fields: %w", err)
	}
	path := apiPrefix + "/entity/" + Collection(entityType) + "/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodPut, path, "application/json", body, nil); err != nil {
		return fmt.Errorf("shotgrid: update %s %d: %w", entityType, id, err)
	}
	return nil
}

// ActiveUsers lists active human users ordered by id, skipping excluded
// logins.
func (c *Client) ActiveUsers(ctx context.Context) ([]domain.DirectoryUser, error) {
	records, err := c.Find(ctx, domain.EntityHumanUser,
		[]domain.Filter{domain.Is("sg_status_list", "act")},
		[]string{"login", "name", "email"},
		0,
	)
	if err != nil {
		return nil, err
	}

	users := make([]domain.DirectoryUser, 0, len(records))
	for _, rec := range records {
		login := rec.String("login")
		if _, skip := c.exclude[login]; skip {
			continue
		}
		users = append(users, domain.DirectoryUser{
			ID:    rec.ID(),
			Login: login,
			Name:  rec.String("name"),
			Email: rec.String("email"),
		})
	}
	sortUsers(users)
	return users, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// do sends an authenticated request. A 401 drops the cached token and the
// request is retried once with a fresh one; a 5xx or network error is also
// retried once.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 && ctx.Err() != nil {
			return lastErr
		}
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.log.WarnContext(ctx, "shotgrid retry", slog.String("path", path), slog.String("reason", "network error"))
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			c.dropToken()
			lastErr = fmt.Errorf("%w: %s", domain.ErrUnauthorized, apiError(data))
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiError(data))
			c.log.WarnContext(ctx, "shotgrid retry", slog.String("path", path), slog.Int("status", resp.StatusCode))
			continue
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, apiError(data))
		case resp.StatusCode >= 300:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiError(data))
		}

		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
		return nil
	}
	return lastErr
}

// accessToken returns a cached script token, requesting a new one when it
// is missing or about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.scriptName)
	form.Set("client_secret", c.scriptKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/auth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("shotgrid: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("shotgrid: token request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("shotgrid: read token body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shotgrid: token: %w: status %d: %s", domain.ErrUnauthorized, resp.StatusCode, apiError(data))
	}

	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", fmt.Errorf("shotgrid: decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("shotgrid: token response without access_token")
	}

	c.token = tok.AccessToken
	c.expires = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSlack)
	return c.token, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
