// Package api is the HTTP transport to the remote game service. It owns the
// retry loop: rate limiting and transient failures are retried with
// exponential backoff and jitter, and a single outcome is returned to the
// caller once the attempt budget is spent.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gatekeep/gatekeep/game"
)

const userAgent = "gatekeep/1.0"

// Fallback when the service omits targetAdmissions.
const defaultCapacity = 1000

// Defaults for Config zero values.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxAttempts    = 6
	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
)

// Config groups client connection parameters. Zero values fall back to the
// Default* constants above.
type Config struct {
	BaseURL  string
	PlayerID string
	// Timeout bounds each individual request.
	Timeout time.Duration
	// MaxAttempts is the total attempt budget per logical request, retries
	// included. Exhausting it is a fatal transport error.
	MaxAttempts uint64
	// InitialBackoff and MaxBackoff bound the retry delay growth.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Throttle is a fixed pause before each decision submission, to play
	// nice with the service's rate limiter.
	Throttle time.Duration
}

// Client talks to the remote game service. It is not safe for concurrent
// use; the run loop is strictly sequential.
type Client struct {
	cfg      Config
	http     *http.Client
	clientID string
	gameID   string
}

// New creates a client with a fresh per-run client identifier.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		clientID: uuid.NewString(),
	}
}

// ClientID returns the per-run identifier sent with every request.
func (c *Client) ClientID() string { return c.clientID }

type wireConstraint struct {
	Attribute string `json:"attribute"`
	MinCount  int    `json:"minCount"`
}

type newGameResponse struct {
	GameID              string           `json:"gameId"`
	TargetAdmissions    int              `json:"targetAdmissions"`
	Constraints         []wireConstraint `json:"constraints"`
	AttributeStatistics struct {
		RelativeFrequencies map[string]float64 `json:"relativeFrequencies"`
	} `json:"attributeStatistics"`
}

type wirePerson struct {
	PersonIndex int             `json:"personIndex"`
	Attributes  map[string]bool `json:"attributes"`
}

type decideResponse struct {
	Status        string      `json:"status"`
	NextPerson    *wirePerson `json:"nextPerson"`
	AdmittedCount int         `json:"admittedCount"`
	RejectedCount int         `json:"rejectedCount"`
	Reason        string      `json:"reason"`
}

// NewGame creates a session and returns its parameters.
func (c *Client) NewGame(ctx context.Context, scenario int) (*game.Session, error) {
	q := url.Values{}
	q.Set("scenario", strconv.Itoa(scenario))
	q.Set("playerId", c.cfg.PlayerID)

	var out newGameResponse
	if err := c.getJSON(ctx, "/new-game", q, &out); err != nil {
		return nil, err
	}
	if out.GameID == "" {
		return nil, fmt.Errorf("new-game response missing gameId")
	}
	c.gameID = out.GameID

	capacity := out.TargetAdmissions
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	sess := &game.Session{
		GameID:              out.GameID,
		Capacity:            capacity,
		RelativeFrequencies: out.AttributeStatistics.RelativeFrequencies,
	}
	for _, w := range out.Constraints {
		sess.Constraints = append(sess.Constraints, game.Constraint{
			Attribute: w.Attribute,
			MinCount:  w.MinCount,
		})
	}
	return sess, nil
}

// DecideAndNext submits the decision for personIndex (nil accept for the
// initial pull) and returns the next turn.
func (c *Client) DecideAndNext(ctx context.Context, personIndex int, accept *bool) (*game.Turn, error) {
	if accept != nil && c.cfg.Throttle > 0 {
		timer := time.NewTimer(c.cfg.Throttle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	q := url.Values{}
	q.Set("gameId", c.gameID)
	q.Set("personIndex", strconv.Itoa(personIndex))
	if accept != nil {
		q.Set("accept", strconv.FormatBool(*accept))
	}

	var out decideResponse
	if err := c.getJSON(ctx, "/decide-and-next", q, &out); err != nil {
		return nil, err
	}
	turn := &game.Turn{
		Status:        out.Status,
		AdmittedCount: out.AdmittedCount,
		RejectedCount: out.RejectedCount,
		Reason:        out.Reason,
	}
	if out.NextPerson != nil {
		turn.Person = &game.Person{
			Index:      out.NextPerson.PersonIndex,
			Attributes: out.NextPerson.Attributes,
		}
	}
	if turn.Status == game.StatusRunning && turn.Person == nil {
		return nil, fmt.Errorf("running response missing nextPerson")
	}
	return turn, nil
}

// getJSON issues one GET with the retry loop. Network failures, 429s, and
// other non-2xx responses are retried; context cancellation and malformed
// bodies are permanent.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + q.Encode()

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("X-Client-Id", c.clientID)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("request %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			logrus.Debugf("rate limited on %s, backing off", path)
			return fmt.Errorf("rate limited on %s", path)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("%s returned %s", path, resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s response: %w", path, err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialBackoff
	bo.MaxInterval = c.cfg.MaxBackoff
	bo.RandomizationFactor = 0.5
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0 // attempts are bounded by MaxAttempts, not wall time

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxAttempts-1), ctx))
	if err != nil {
		return fmt.Errorf("giving up after %d attempts: %w", c.cfg.MaxAttempts, err)
	}
	return nil
}
