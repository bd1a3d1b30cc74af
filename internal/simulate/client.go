package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/cuerank/internal/domain/model"
	"github.com/okian/cuerank/internal/domain/placement"
	"github.com/okian/cuerank/internal/domain/tiers"
	"github.com/okian/cuerank/pkg/logger"
)

// Client talks to the cuerank HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

// apiError is a non-2xx answer from the service.
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d: %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		e := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, e)
		return resp.StatusCode, e
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil)
	return err
}

// Tiers fetches the tier table the service uses.
func (c *Client) Tiers(ctx context.Context) (*tiers.Table, error) {
	var t tiers.Table
	if _, err := c.do(ctx, http.MethodGet, "/v1/tiers", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

type finalizeBody struct {
	TierCode     string               `json:"tier_code"`
	ClubID       string               `json:"club_id,omitempty"`
	SeasonID     string               `json:"season_id,omitempty"`
	Participants int                  `json:"participants"`
	FinishedAt   time.Time            `json:"finished_at"`
	Finishers    []placement.Finisher `json:"finishers"`
}

// Finalize submits one tournament. It reports whether the service had
// already finalized it.
func (c *Client) Finalize(ctx context.Context, t placement.Tournament) (bool, error) {
	var res struct {
		Duplicate bool `json:"duplicate"`
	}
	_, err := c.do(ctx, http.MethodPost, "/v1/tournaments/"+url.PathEscape(t.ID)+"/finalize", finalizeBody{
		TierCode:     t.TierCode,
		ClubID:       t.ClubID,
		SeasonID:     t.SeasonID,
		Participants: t.Participants,
		FinishedAt:   t.FinishedAt,
		Finishers:    t.Finishers,
	}, &res)
	return res.Duplicate, err
}

// Recompute asks the service to rebuild scope now.
func (c *Client) Recompute(ctx context.Context, scope string) error {
	_, err := c.do(ctx, http.MethodPost, "/v1/scopes/"+url.PathEscape(scope)+"/recompute", nil, nil)
	return err
}

// Standings fetches the first limit rows of scope.
func (c *Client) Standings(ctx context.Context, scope string, limit int) ([]model.Standing, error) {
	var res struct {
		Standings []model.Standing `json:"standings"`
	}
	path := "/v1/scopes/" + url.PathEscape(scope) + "/standings?limit=" + strconv.Itoa(limit)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Standings, nil
}

// Standing fetches one player's row in scope.
func (c *Client) Standing(ctx context.Context, scope, playerID string) (model.Standing, error) {
	var row model.Standing
	path := "/v1/scopes/" + url.PathEscape(scope) + "/standings/" + url.PathEscape(playerID)
	_, err := c.do(ctx, http.MethodGet, path, nil, &row)
	return row, err
}

// finalizeAll submits the league's tournaments with cfg.Workers concurrent
// requests and counts the outcomes into stats.
func finalizeAll(ctx context.Context, cfg *Config, c *Client, l *League, stats *Stats) {
	log := logger.Get().Named("simulate")
	var finalized, duplicate, failed int64

	jobs := make(chan placement.Tournament, cfg.Workers*2)
	var wg sync.WaitGroup
	for range max(1, cfg.Workers) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				dup, err := c.Finalize(ctx, t)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					log.Warn(ctx, "finalize failed", logger.String("tournament", t.ID), logger.Error(err))
				case dup:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&finalized, 1)
				}
				if cfg.Verbose {
					log.Debug(ctx, "finalized", logger.String("tournament", t.ID), logger.Bool("duplicate", dup))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, t := range l.Tournaments {
			select {
			case <-ctx.Done():
				return
			case jobs <- t:
			}
		}
	}()
	wg.Wait()

	stats.Finalized = int(finalized)
	stats.Duplicates = int(duplicate)
	stats.Failed = int(failed)
}
