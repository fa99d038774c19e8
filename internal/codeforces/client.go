package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vytor/cfpractice/internal/errors"
	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
)

// VerdictAccepted is the judge's verdict string for an accepted submission.
const VerdictAccepted = "OK"

type Client struct {
	httpClient *http.Client
	base       string
	log        *logger.Logger
}

func New(base string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		base:       strings.TrimRight(base, "/"),
		log:        logger.Default().WithPrefix("codeforces"),
	}
}

// envelope is the judge's uniform response wrapper. Comment carries the
// diagnostic text when Status is not OK.
type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

// UserInfo is the subset of user.info the tracker needs.
type UserInfo struct {
	Handle string `json:"handle"`
	Rating int    `json:"rating"`
}

// Submission is one entry of user.status.
type Submission struct {
	Problem models.Problem `json:"problem"`
	Verdict string         `json:"verdict"`
}

// Contest is one entry of contest.list. StartTimeSeconds is nil for
// contests the judge has not scheduled.
type Contest struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	StartTimeSeconds *int64 `json:"startTimeSeconds"`
}

func (c *Client) fetch(ctx context.Context, path string, query url.Values, fallback string) (json.RawMessage, error) {
	log := logger.FromContext(ctx).WithPrefix("codeforces")

	u := c.base + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	log.Debug("fetching %s", u)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return nil, errors.NewInternalError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("request failed: %v", err)
		return nil, errors.NewRejectedError(fallback)
	}
	defer resp.Body.Close()

	log.Debug("response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode == http.StatusTooManyRequests {
		log.Warn("rate limited by judge: %s", path)
		return nil, errors.NewRateLimitedError()
	}
	if resp.StatusCode >= 500 {
		log.Error("judge unavailable: status=%d", resp.StatusCode)
		return nil, errors.NewUnavailableError(resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Error("failed to decode response: %v", err)
		if resp.StatusCode != http.StatusOK {
			return nil, errors.NewRejectedError(fmt.Sprintf("%s (HTTP %d)", fallback, resp.StatusCode))
		}
		return nil, errors.NewRejectedError(fallback)
	}

	if env.Status != "OK" {
		comment := env.Comment
		if comment == "" {
			comment = fallback
		}
		log.Warn("judge rejected request: %s", comment)
		if strings.Contains(strings.ToLower(comment), "not found") {
			return nil, &errors.AppError{
				Code:    errors.ErrCodeNotFound,
				Message: comment,
				Status:  404,
			}
		}
		return nil, errors.NewRejectedError(comment)
	}

	return env.Result, nil
}

// FetchUserInfo resolves a handle to its current rating via user.info.
func (c *Client) FetchUserInfo(ctx context.Context, handle string) (*UserInfo, error) {
	q := url.Values{"handles": {handle}}
	raw, err := c.fetch(ctx, "user.info", q, "User not found or API error")
	if err != nil {
		return nil, err
	}

	var users []UserInfo
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, errors.NewRejectedError("unexpected user.info payload")
	}
	if len(users) == 0 {
		return nil, errors.NewNotFoundError("handle", handle)
	}

	logger.FromContext(ctx).WithPrefix("codeforces").
		Info("fetched user info: handle=%s rating=%d", users[0].Handle, users[0].Rating)
	return &users[0], nil
}

// FetchFullSubmissions returns the handle's complete submission history.
func (c *Client) FetchFullSubmissions(ctx context.Context, handle string) ([]Submission, error) {
	q := url.Values{"handle": {handle}}
	raw, err := c.fetch(ctx, "user.status", q, "Failed to fetch submissions")
	if err != nil {
		return nil, err
	}

	var subs []Submission
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, errors.NewRejectedError("unexpected user.status payload")
	}

	logger.FromContext(ctx).WithPrefix("codeforces").
		Info("fetched %d submissions for %s", len(subs), handle)
	return subs, nil
}

// FetchRecentSubmissions returns the handle's most recent submissions.
// Failures degrade to an empty result: this feeds only the best-effort
// quick recheck tier and must never abort a sync.
func (c *Client) FetchRecentSubmissions(ctx context.Context, handle string, count int) ([]Submission, error) {
	log := logger.FromContext(ctx).WithPrefix("codeforces")

	q := url.Values{
		"handle": {handle},
		"from":   {"1"},
		"count":  {fmt.Sprintf("%d", count)},
	}
	raw, err := c.fetch(ctx, "user.status", q, "Failed to fetch recent submissions")
	if err != nil {
		log.Warn("quick recheck fetch failed, continuing with empty result: %v", err)
		return nil, nil
	}

	var subs []Submission
	if err := json.Unmarshal(raw, &subs); err != nil {
		log.Warn("quick recheck payload malformed, continuing with empty result: %v", err)
		return nil, nil
	}

	log.Debug("fetched %d recent submissions for %s", len(subs), handle)
	return subs, nil
}

// FetchProblemset returns the full problem catalog.
func (c *Client) FetchProblemset(ctx context.Context) ([]models.Problem, error) {
	raw, err := c.fetch(ctx, "problemset.problems", nil, "Failed to fetch problemset")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Problems []models.Problem `json:"problems"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.NewRejectedError("unexpected problemset payload")
	}

	logger.FromContext(ctx).WithPrefix("codeforces").
		Info("fetched problemset with %d problems", len(payload.Problems))
	return payload.Problems, nil
}

// FetchContests returns the non-gym contest list.
func (c *Client) FetchContests(ctx context.Context) ([]Contest, error) {
	q := url.Values{"gym": {"false"}}
	raw, err := c.fetch(ctx, "contest.list", q, "Failed to fetch contest list")
	if err != nil {
		return nil, err
	}

	var contests []Contest
	if err := json.Unmarshal(raw, &contests); err != nil {
		return nil, errors.NewRejectedError("unexpected contest.list payload")
	}

	logger.FromContext(ctx).WithPrefix("codeforces").
		Info("fetched %d contests", len(contests))
	return contests, nil
}
