// Package platform talks to the fitness platform's REST and GraphQL APIs.
// The client is stateless; the session token obtained from Authenticate is
// stored in the user's web session and passed back on every call.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/pelocoach/internal/catalog"
	"github.com/myrjola/pelocoach/internal/errors"
)

// ErrPlatform wraps every upstream failure: transport errors, non-2xx
// statuses and undecodable payloads. Callers branch on this sentinel to
// distinguish platform trouble from their own bugs.
var ErrPlatform = errors.NewSentinel("fitness platform request failed")

const (
	sessionCookieName = "peloton_session_id"
	catalogPageLimit  = 50
	requestTimeout    = 30 * time.Second
)

// Session identifies an authenticated platform user.
type Session struct {
	UserID string
	Token  string
}

// Client calls the platform API. Construct with New.
type Client struct {
	baseURL    string
	graphqlURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// New constructs a client against the given API and GraphQL base URLs.
func New(baseURL, graphqlURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		graphqlURL: graphqlURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Authenticate logs in with the user's platform credentials and returns the
// session used for all subsequent calls.
func (c *Client) Authenticate(ctx context.Context, username, password string) (Session, error) {
	payload := map[string]string{
		"username_or_email": username,
		"password":          password,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Session{}, errors.Wrap(err, "marshal login payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return Session{}, errors.Wrap(err, "build login request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, errors.Wrap(errors.Join(ErrPlatform, err), "login request")
	}
	defer closeBody(resp.Body, c.logger)

	if resp.StatusCode != http.StatusOK {
		return Session{}, errors.Wrap(ErrPlatform, "login rejected",
			slog.Int("status", resp.StatusCode))
	}

	var loginResp struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return Session{}, errors.Wrap(errors.Join(ErrPlatform, err), "decode login response")
	}

	token := loginResp.SessionID
	for _, cookie := range resp.Cookies() {
		if cookie.Name == sessionCookieName {
			token = cookie.Value
		}
	}
	if loginResp.UserID == "" || token == "" {
		return Session{}, errors.Wrap(ErrPlatform, "login response missing user id or session")
	}

	return Session{UserID: loginResp.UserID, Token: token}, nil
}

// RecentClasses fetches one page of on-demand classes for a browse category,
// newest first.
func (c *Client) RecentClasses(ctx context.Context, sess Session, browseCategory string) ([]catalog.RawRecord, error) {
	url := fmt.Sprintf(
		"%s/api/v2/ride/archived?browse_category=%s&limit=%d&sort_by=original_air_time&desc=true",
		c.baseURL, browseCategory, catalogPageLimit)

	var page struct {
		Data []catalog.RawRecord `json:"data"`
	}
	if err := c.getJSON(ctx, sess, url, &page); err != nil {
		return nil, errors.Wrap(err, "fetch recent classes",
			slog.String("browse_category", browseCategory))
	}
	return page.Data, nil
}

// UserWorkouts fetches one page of the user's workout history with the class
// details joined in.
func (c *Client) UserWorkouts(ctx context.Context, sess Session) ([]catalog.RawRecord, error) {
	url := fmt.Sprintf("%s/api/user/%s/workouts?joins=peloton.ride&limit=%d&page=0",
		c.baseURL, sess.UserID, catalogPageLimit)

	var page struct {
		Data []catalog.RawRecord `json:"data"`
	}
	if err := c.getJSON(ctx, sess, url, &page); err != nil {
		return nil, errors.Wrap(err, "fetch user workouts")
	}
	return page.Data, nil
}

// Instructors fetches every instructor page and returns an id to name lookup.
func (c *Client) Instructors(ctx context.Context) (catalog.InstructorLookup, error) {
	lookup := catalog.InstructorLookup{}
	for page := 0; ; page++ {
		url := fmt.Sprintf("%s/api/instructor?limit=%d&page=%d", c.baseURL, catalogPageLimit, page)

		var resp struct {
			Data []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"data"`
			PageCount int `json:"page_count"`
		}
		if err := c.getJSON(ctx, Session{}, url, &resp); err != nil {
			return nil, errors.Wrap(err, "fetch instructors", slog.Int("page", page))
		}
		for _, instructor := range resp.Data {
			lookup[instructor.ID] = instructor.Name
		}
		if page >= resp.PageCount-1 || len(resp.Data) == 0 {
			return lookup, nil
		}
	}
}

// JoinToken resolves a class id to the on-demand join token the stack
// mutation requires.
func (c *Client) JoinToken(ctx context.Context, sess Session, classID string) (string, error) {
	url := fmt.Sprintf("%s/api/ride/%s/details", c.baseURL, classID)

	var details struct {
		Ride struct {
			JoinTokens struct {
				OnDemand string `json:"on_demand"`
			} `json:"join_tokens"`
		} `json:"ride"`
	}
	if err := c.getJSON(ctx, sess, url, &details); err != nil {
		return "", errors.Wrap(err, "fetch ride details", slog.String("class_id", classID))
	}
	if details.Ride.JoinTokens.OnDemand == "" {
		return "", errors.Wrap(ErrPlatform, "ride details missing join token",
			slog.String("class_id", classID))
	}
	return details.Ride.JoinTokens.OnDemand, nil
}

func (c *Client) getJSON(ctx context.Context, sess Session, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if sess.Token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sess.Token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(ErrPlatform, err)
	}
	defer closeBody(resp.Body, c.logger)

	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(ErrPlatform, "unexpected status", slog.Int("status", resp.StatusCode))
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.Join(ErrPlatform, err), "decode response")
	}
	return nil
}

func closeBody(body io.ReadCloser, logger *slog.Logger) {
	if err := body.Close(); err != nil {
		logger.Warn("close response body", slog.Any("error", err))
	}
}
