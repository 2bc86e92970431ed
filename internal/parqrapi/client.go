package parqrapi

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
	"time"

	"github.com/suspectuso/parqr-companion/internal/feed"
	"github.com/suspectuso/parqr-companion/internal/identity"
)

// DefaultTimeout matches the app's HTTP client
const DefaultTimeout = 10 * time.Second

// ErrNotFound is returned for 404 responses
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the parQR API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client is a parQR REST API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new parQR API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// doRequest sends a JSON request on behalf of the user in asUser (may be empty)
func (c *Client) doRequest(ctx context.Context, method, path string, asUser identity.Identity, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if asUser != "" {
		req.Header.Set("X-User-Code", asUser.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, asUser identity.Identity, out interface{}) error {
	data, err := c.doRequest(ctx, http.MethodGet, path, asUser, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

// FetchUnreadCount returns the unread count of one notification channel
func (c *Client) FetchUnreadCount(ctx context.Context, ch feed.Channel, id identity.Identity) (int, error) {
	switch ch {
	case feed.ChannelChat:
		return c.ChatUnreadCount(ctx, id)
	case feed.ChannelMoveRequest:
		return c.MoveRequestUnreadCount(ctx, id)
	default:
		return 0, fmt.Errorf("unknown channel %q", ch)
	}
}

// --- Users ---

// LookupUser returns the public profile for a user code
func (c *Client) LookupUser(ctx context.Context, code identity.Identity) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "/v01/user/"+url.PathEscape(code.String()), "", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- Chat ---

// Conversations returns the chat list of the acting user
func (c *Client) Conversations(ctx context.Context, asUser identity.Identity) ([]Conversation, error) {
	var convs []Conversation
	if err := c.getJSON(ctx, "/v01/chat/conversations", asUser, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ChatUnreadCount sums unread messages across all conversations
func (c *Client) ChatUnreadCount(ctx context.Context, asUser identity.Identity) (int, error) {
	convs, err := c.Conversations(ctx, asUser)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, conv := range convs {
		total += conv.UnreadCount
	}
	return total, nil
}

// Messages returns a page of the conversation with another user, newest first
func (c *Client) Messages(ctx context.Context, asUser, with identity.Identity, limit, offset int) ([]Message, error) {
	path := fmt.Sprintf("/v01/chat/messages/%s?limit=%d&offset=%d", url.PathEscape(with.String()), limit, offset)
	var msgs []Message
	if err := c.getJSON(ctx, path, asUser, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage sends a text message to another user
func (c *Client) SendMessage(ctx context.Context, asUser, to identity.Identity, text string) (*Message, error) {
	body := sendMessageRequest{
		RecipientUserCode: to.String(),
		Content:           text,
		Type:              MessageTypeText,
	}
	data, err := c.doRequest(ctx, http.MethodPost, "/v01/chat/send", asUser, body)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &msg, nil
}

// SendMoveCarMessage posts the canned "move your car" chat message
func (c *Client) SendMoveCarMessage(ctx context.Context, asUser, to identity.Identity) (*Message, error) {
	path := "/v01/chat/move-car-request/" + url.PathEscape(to.String())
	data, err := c.doRequest(ctx, http.MethodPost, path, asUser, nil)
	if err != nil {
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &msg, nil
}

// MarkMessagesRead marks messages addressed to the acting user as read
func (c *Client) MarkMessagesRead(ctx context.Context, asUser identity.Identity, ids []int64) (int, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/v01/chat/mark-read", asUser, markReadRequest{MessageIDs: ids})
	if err != nil {
		return 0, err
	}

	var resp markReadResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("unmarshal: %w", err)
	}
	return resp.MarkedAsRead, nil
}

// --- Move requests ---

// MoveRequestUnreadCount returns the number of unread move requests
func (c *Client) MoveRequestUnreadCount(ctx context.Context, code identity.Identity) (int, error) {
	var resp unreadCountResponse
	path := "/v01/move_requests/unread_count/" + url.PathEscape(code.String())
	if err := c.getJSON(ctx, path, code, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}

// MoveRequestPreview returns the latest move requests for a user
func (c *Client) MoveRequestPreview(ctx context.Context, code identity.Identity, limit int) ([]MoveRequest, error) {
	var resp previewResponse
	path := fmt.Sprintf("/v01/move_requests/preview/%s?limit=%d", url.PathEscape(code.String()), limit)
	if err := c.getJSON(ctx, path, code, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// CreateMoveRequest asks the owner of target to move the car with the given plate
func (c *Client) CreateMoveRequest(ctx context.Context, asUser, target identity.Identity, licensePlate string) error {
	body := createMoveRequest{
		TargetUserCode: target.String(),
		LicensePlate:   licensePlate,
	}
	_, err := c.doRequest(ctx, http.MethodPost, "/v01/move_requests/create", asUser, body)
	return err
}

// MarkMoveRequestRead marks one move request as read
func (c *Client) MarkMoveRequestRead(ctx context.Context, asUser identity.Identity, requestID int64) error {
	path := fmt.Sprintf("/v01/move_requests/%d/mark_read", requestID)
	_, err := c.doRequest(ctx, http.MethodPut, path, asUser, nil)
	return err
}
