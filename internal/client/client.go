package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	contentTypeJSON = "application/json"
	maxErrorBody    = 4096
)

var errMissingBaseURL = errors.New("client: base url is required")

// APIError reports a non-success response from the chat log API.
type APIError struct {
	StatusCode int
	Code       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api status %d: %s: %s", e.StatusCode, e.Code, e.Detail)
	}
	if e.Code != "" {
		return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("api status %d", e.StatusCode)
}

// Room is a created room as returned by the API.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SendResult acknowledges an appended message.
type SendResult struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Seq    int64  `json:"seq"`
}

// Message is a single entry of a room log.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Seq       int64     `json:"seq"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is one poll response.
type Page struct {
	Messages     []Message `json:"messages"`
	NextAfterSeq int64     `json:"next_after_seq"`
}

// PollOptions narrows a poll. Zero values leave the server defaults in place.
type PollOptions struct {
	AfterSeq int64
	Limit    int
	Wait     time.Duration
}

// Config describes how to reach the API.
type Config struct {
	BaseURL string
	// Timeout bounds every request. Zero disables the timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the chat log HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New validates cfg and constructs a Client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("client: invalid base url %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// CreateRoom registers a room named name.
func (c *Client) CreateRoom(ctx context.Context, name string) (Room, error) {
	var room Room
	err := c.doJSON(ctx, http.MethodPost, "/rooms", map[string]string{"name": name}, http.StatusCreated, &room)
	return room, err
}

// SendMessage appends body to roomID on behalf of userID.
func (c *Client) SendMessage(ctx context.Context, roomID, userID, body string) (SendResult, error) {
	var result SendResult
	payload := map[string]string{"user_id": userID, "body": body}
	err := c.doJSON(ctx, http.MethodPost, roomMessagesPath(roomID), payload, http.StatusCreated, &result)
	return result, err
}

// PollMessages reads the messages of roomID after options.AfterSeq.
func (c *Client) PollMessages(ctx context.Context, roomID string, options PollOptions) (Page, error) {
	query := url.Values{}
	query.Set("after_seq", strconv.FormatInt(options.AfterSeq, 10))
	if options.Limit > 0 {
		query.Set("limit", strconv.Itoa(options.Limit))
	}
	if options.Wait > 0 {
		query.Set("wait_ms", strconv.FormatInt(options.Wait.Milliseconds(), 10))
	}

	var page Page
	err := c.doJSON(ctx, http.MethodGet, roomMessagesPath(roomID)+"?"+query.Encode(), nil, http.StatusOK, &page)
	return page, err
}

// Health checks the liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, expectedStatus int, target any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", contentTypeJSON)
	}
	request.Header.Set("Accept", contentTypeJSON)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != expectedStatus {
		return decodeAPIError(response)
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(response *http.Response) error {
	apiErr := &APIError{StatusCode: response.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
		Code   string `json:"code"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return apiErr
	}
	apiErr.Code = payload.Error
	apiErr.Detail = payload.Detail
	if apiErr.Detail == "" {
		apiErr.Detail = payload.Code
	}
	return apiErr
}

func roomMessagesPath(roomID string) string {
	return "/rooms/" + url.PathEscape(roomID) + "/messages"
}
