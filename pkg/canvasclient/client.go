// Package canvasclient talks to the note canvas persistence API.
package canvasclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"studyhub-be/pkg/canvas"
)

var ErrNoUser = errors.New("canvasclient: user id is required")

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type loadResponse struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt *time.Time      `json:"updatedAt"`
	Error     string          `json:"error"`
}

type saveRequest struct {
	UserID string          `json:"userId"`
	Data   canvas.Snapshot `json:"data"`
}

// StatusError is returned for any non 2xx answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("canvasclient: status %d", e.Code)
	}
	return fmt.Sprintf("canvasclient: status %d: %s", e.Code, e.Message)
}

// Load fetches the stored snapshot. A user with nothing stored gets a fresh
// document and a nil time. Malformed data still yields the recovered
// document along with canvas.ErrMalformedSnapshot.
func (c *Client) Load(ctx context.Context, userID string) (*canvas.Document, *time.Time, error) {
	if userID == "" {
		return nil, nil, ErrNoUser
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/note-canvas/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, nil, err
	}

	var out loadResponse
	if err := c.do(req, &out); err != nil {
		return nil, nil, err
	}
	doc, err := canvas.HydrateJSON(out.Data)
	return doc, out.UpdatedAt, err
}

func (c *Client) Save(ctx context.Context, userID string, snap canvas.Snapshot) (*time.Time, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	body, err := json.Marshal(saveRequest{UserID: userID, Data: snap})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/note-canvas", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out loadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.UpdatedAt, nil
}

func (c *Client) do(req *http.Request, out *loadResponse) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = json.Unmarshal(raw, out)
		return &StatusError{Code: resp.StatusCode, Message: out.Error}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Loader runs loads in the background and delivers only the result of the
// most recent request. Starting a new load or calling Cancel makes every
// earlier in-flight result stale.
type Loader struct {
	client *Client

	mu     sync.Mutex
	epoch  uint64
	cancel context.CancelFunc
}

type LoadResult struct {
	UserID    string
	Document  *canvas.Document
	UpdatedAt *time.Time
	Err       error
}

func NewLoader(c *Client) *Loader {
	return &Loader{client: c}
}

// Start begins loading userID and calls apply with the result unless the
// load was superseded. apply runs on the loader goroutine.
func (l *Loader) Start(ctx context.Context, userID string, apply func(LoadResult)) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.epoch++
	epoch := l.epoch
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	go func() {
		defer cancel()
		doc, updatedAt, err := l.client.Load(ctx, userID)

		l.mu.Lock()
		current := l.epoch == epoch
		l.mu.Unlock()
		if !current {
			return
		}
		apply(LoadResult{UserID: userID, Document: doc, UpdatedAt: updatedAt, Err: err})
	}()
}

func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.epoch++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
