// Package storeclient talks to storefrontd over HTTP. A Client serves as both
// the identity directory and the envelope store for a device that does not
// share a process with the database.
package storeclient

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

	"e2estore/internal/domain"
	"e2estore/internal/dto"
	"e2estore/internal/service"

	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response. It matches domain.ErrNotFound and
// service.ErrInvalidRequest through errors.Is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefrontd: %d %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.Status == http.StatusNotFound
	case service.ErrInvalidRequest:
		return e.Status == http.StatusBadRequest
	}
	return false
}

type Client struct {
	baseURL       string
	http          *http.Client
	operatorToken string
	reconnect     time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithOperatorToken attaches a bearer token to operator-only writes.
func WithOperatorToken(token string) Option {
	return func(c *Client) { c.operatorToken = token }
}

func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnect = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   normalizeBaseURL(baseURL),
		http:      &http.Client{Timeout: defaultTimeout},
		reconnect: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizeBaseURL(in string) string {
	return strings.TrimRight(strings.TrimSpace(in), "/")
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, authorize bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorize && c.operatorToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.operatorToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("storefrontd returned invalid id %q: %w", s, err)
	}
	return id, nil
}

var errEmptyKey = errors.New("storefrontd returned an empty public key")

func (c *Client) RegisterCustomer(ctx context.Context, publicKey, authAccountID string) (uuid.UUID, error) {
	var out dto.CustomerResponse
	err := c.do(ctx, http.MethodPost, "/v1/customers", dto.RegisterCustomerRequest{PublicKey: publicKey, AuthAccountID: authAccountID}, &out, false)
	if err != nil {
		return uuid.Nil, err
	}
	return parseID(out.ID)
}

func (c *Client) CustomerPublicKey(ctx context.Context, id uuid.UUID) (string, error) {
	var out dto.PublicKeyBody
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+id.String()+"/public-key", nil, &out, false); err != nil {
		return "", err
	}
	if out.PublicKey == "" {
		return "", errEmptyKey
	}
	return out.PublicKey, nil
}

func (c *Client) UpdateCustomerPublicKey(ctx context.Context, id uuid.UUID, publicKey string) error {
	return c.do(ctx, http.MethodPut, "/v1/customers/"+id.String()+"/public-key", dto.PublicKeyBody{PublicKey: publicKey}, nil, false)
}

func (c *Client) LinkAuthAccount(ctx context.Context, id uuid.UUID, authAccountID string) error {
	return c.do(ctx, http.MethodPut, "/v1/customers/"+id.String()+"/auth-account", dto.LinkAuthAccountRequest{AuthAccountID: authAccountID}, nil, false)
}

func (c *Client) CustomerByAuthAccount(ctx context.Context, authAccountID string) (uuid.UUID, error) {
	var out dto.CustomerResponse
	path := "/v1/customers?auth_account_id=" + url.QueryEscape(authAccountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return uuid.Nil, err
	}
	return parseID(out.ID)
}

func (c *Client) OperatorPublicKey(ctx context.Context) (string, error) {
	var out dto.PublicKeyBody
	if err := c.do(ctx, http.MethodGet, "/v1/operator/public-key", nil, &out, false); err != nil {
		return "", err
	}
	if out.PublicKey == "" {
		return "", errEmptyKey
	}
	return out.PublicKey, nil
}

func (c *Client) SetOperatorPublicKey(ctx context.Context, publicKey string) error {
	return c.do(ctx, http.MethodPut, "/v1/operator/public-key", dto.PublicKeyBody{PublicKey: publicKey}, nil, true)
}

func (c *Client) OpenConversation(ctx context.Context, customerID uuid.UUID, kind domain.ConversationKind) (domain.Conversation, error) {
	var out dto.ConversationResponse
	err := c.do(ctx, http.MethodPost, "/v1/conversations", dto.OpenConversationRequest{CustomerID: customerID.String(), Kind: string(kind)}, &out, false)
	if err != nil {
		return domain.Conversation{}, err
	}
	return out.Domain()
}

func (c *Client) Conversation(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	var out dto.ConversationResponse
	if err := c.do(ctx, http.MethodGet, "/v1/conversations/"+id.String(), nil, &out, false); err != nil {
		return domain.Conversation{}, err
	}
	return out.Domain()
}

func (c *Client) Conversations(ctx context.Context, customerID uuid.UUID) ([]domain.Conversation, error) {
	var out []dto.ConversationResponse
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+customerID.String()+"/conversations", nil, &out, false); err != nil {
		return nil, err
	}
	convs := make([]domain.Conversation, 0, len(out))
	for _, r := range out {
		conv, err := r.Domain()
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func (c *Client) Append(ctx context.Context, in domain.AppendInput) (domain.Record, error) {
	req := dto.AppendRecordRequest{
		Sender:          string(in.Sender),
		Kind:            string(in.Kind),
		Envelope:        in.Envelope,
		SenderPublicKey: in.SenderPublicKey,
	}
	var out dto.RecordResponse
	if err := c.do(ctx, http.MethodPost, "/v1/conversations/"+in.ConversationID.String()+"/records", req, &out, false); err != nil {
		return domain.Record{}, err
	}
	return out.Domain()
}

func (c *Client) ListOrdered(ctx context.Context, conversationID uuid.UUID) ([]domain.Record, error) {
	var out []dto.RecordResponse
	if err := c.do(ctx, http.MethodGet, "/v1/conversations/"+conversationID.String()+"/records", nil, &out, false); err != nil {
		return nil, err
	}
	recs := make([]domain.Record, 0, len(out))
	for _, r := range out {
		rec, err := r.Domain()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
