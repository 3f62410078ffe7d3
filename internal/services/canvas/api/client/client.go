// Package client is the Go client for the canvas REST API. The MCP bridge
// and command-line tooling talk to the canvas service through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
	"github.com/louisbranch/pixelfield/internal/platform/timeouts"
)

// Config configures a canvas API client.
type Config struct {
	// BaseURL is the canvas service root, e.g. "http://localhost:8080".
	BaseURL string
	// Grant is an optional painter grant sent as a bearer token.
	Grant string
	// Actor is an optional development-mode actor sent as the
	// X-Canvas-Actor header. Ignored by servers with grants configured.
	Actor string
	// HTTPClient overrides the transport. Defaults to a client with the
	// shared API request timeout.
	HTTPClient *http.Client
}

// Client calls the canvas REST API.
type Client struct {
	baseURL    string
	grant      string
	actor      string
	httpClient *http.Client
}

// New builds a canvas API client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("canvas client: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("canvas client: parse base URL: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.APIRequest}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		grant:      strings.TrimSpace(cfg.Grant),
		actor:      strings.TrimSpace(cfg.Actor),
		httpClient: httpClient,
	}, nil
}

// Grid fetches the full canvas grid.
func (c *Client) Grid(ctx context.Context) (Grid, error) {
	var out Grid
	err := c.do(ctx, http.MethodGet, "/v1/grid", nil, &out)
	return out, err
}

// Cell fetches a single cell by coordinates.
func (c *Client) Cell(ctx context.Context, x, y int) (CellAt, error) {
	var out CellAt
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/cells/%d/%d", x, y), nil, &out)
	return out, err
}

// ContentHash fetches the canonical hash of the current grid.
func (c *Client) ContentHash(ctx context.Context) (string, error) {
	var out struct {
		ContentHash string `json:"contentHash"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/grid/hash", nil, &out); err != nil {
		return "", err
	}
	return out.ContentHash, nil
}

// Cooldown fetches the cooldown status for the calling actor.
func (c *Client) Cooldown(ctx context.Context) (Cooldown, error) {
	var out Cooldown
	err := c.do(ctx, http.MethodGet, "/v1/cooldown", nil, &out)
	return out, err
}

// Stats fetches canvas configuration and counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.do(ctx, http.MethodGet, "/v1/stats", nil, &out)
	return out, err
}

// PlaceCell writes one cell as the calling actor.
func (c *Client) PlaceCell(ctx context.Context, x, y, value int) (PlaceResult, error) {
	body := map[string]int{"x": x, "y": y, "value": value}
	var out PlaceResult
	err := c.do(ctx, http.MethodPost, "/v1/cells", body, &out)
	return out, err
}

// CreateSnapshot captures the live grid as a snapshot owned by the caller.
func (c *Client) CreateSnapshot(ctx context.Context) (SnapshotResult, error) {
	var out SnapshotResult
	err := c.do(ctx, http.MethodPost, "/v1/snapshots", nil, &out)
	return out, err
}

// ComposeSnapshot registers a caller-supplied grid as a composed snapshot.
func (c *Client) ComposeSnapshot(ctx context.Context, values []int) (SnapshotResult, error) {
	body := map[string][]int{"values": values}
	var out SnapshotResult
	err := c.do(ctx, http.MethodPost, "/v1/snapshots/composed", body, &out)
	return out, err
}

// ListSnapshotsRequest filters and pages a snapshot listing.
type ListSnapshotsRequest struct {
	Creator   string
	PageSize  int
	PageToken string
}

// ListSnapshots pages through registered snapshots.
func (c *Client) ListSnapshots(ctx context.Context, req ListSnapshotsRequest) (SnapshotPage, error) {
	query := url.Values{}
	if req.Creator != "" {
		query.Set("creator", req.Creator)
	}
	if req.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	if req.PageToken != "" {
		query.Set("pageToken", req.PageToken)
	}
	path := "/v1/snapshots"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out SnapshotPage
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Snapshot fetches one snapshot by ID.
func (c *Client) Snapshot(ctx context.Context, id uint64) (Snapshot, error) {
	var out struct {
		Snapshot Snapshot `json:"snapshot"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/snapshots/%d", id), nil, &out)
	return out.Snapshot, err
}

// SnapshotImage fetches the rendered PNG for a snapshot.
func (c *Client) SnapshotImage(ctx context.Context, id uint64) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/snapshots/%d/image", id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call canvas api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot image: %w", err)
	}
	return data, nil
}

// Mint purchases a collectible for a snapshot the caller created.
func (c *Client) Mint(ctx context.Context, snapshotID, payment uint64) (MintOutcome, error) {
	body := map[string]uint64{"payment": payment}
	var out MintOutcome
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/snapshots/%d/mint", snapshotID), body, &out)
	return out, err
}

// Collectible fetches one minted collectible by token ID.
func (c *Client) Collectible(ctx context.Context, tokenID uint64) (Collectible, error) {
	var out struct {
		Collectible Collectible `json:"collectible"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/collectibles/%d", tokenID), nil, &out)
	return out.Collectible, err
}

// Events fetches sealed journal entries after the given sequence number.
func (c *Client) Events(ctx context.Context, afterSeq uint64, limit int) ([]Entry, error) {
	query := url.Values{}
	if afterSeq > 0 {
		query.Set("afterSeq", strconv.FormatUint(afterSeq, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/events"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out struct {
		Entries []Entry `json:"entries"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Entries, err
}

// SetCooldown updates the global cooldown. Admin only.
func (c *Client) SetCooldown(ctx context.Context, seconds uint64) (CooldownUpdate, error) {
	body := map[string]uint64{"seconds": seconds}
	var out CooldownUpdate
	err := c.do(ctx, http.MethodPut, "/v1/admin/cooldown", body, &out)
	return out, err
}

// SetMintPrice updates the minimum mint payment. Admin only.
func (c *Client) SetMintPrice(ctx context.Context, price uint64) (PriceUpdate, error) {
	body := map[string]uint64{"price": price}
	var out PriceUpdate
	err := c.do(ctx, http.MethodPut, "/v1/admin/mint-price", body, &out)
	return out, err
}

// Withdraw pays the treasury balance out to the admin. Admin only.
func (c *Client) Withdraw(ctx context.Context) (WithdrawOutcome, error) {
	var out WithdrawOutcome
	err := c.do(ctx, http.MethodPost, "/v1/admin/withdraw", nil, &out)
	return out, err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build canvas request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.grant != "" {
		req.Header.Set("Authorization", "Bearer "+c.grant)
	} else if c.actor != "" {
		req.Header.Set("X-Canvas-Actor", c.actor)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, into any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call canvas api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if into == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decode canvas response: %w", err)
	}
	return nil
}

// maxErrorBody bounds how much of an error response is read back.
const maxErrorBody = 64 << 10

// decodeError turns an API error envelope back into the platform error it
// left the service as, so callers keep matching on codes.
func decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("canvas api status %d", resp.StatusCode)
	}
	var envelope struct {
		Error struct {
			Code     string            `json:"code"`
			Message  string            `json:"message"`
			Metadata map[string]string `json:"metadata"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code == "" {
		return fmt.Errorf("canvas api status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return &apperrors.Error{
		Code:     apperrors.Code(envelope.Error.Code),
		Message:  envelope.Error.Message,
		Metadata: envelope.Error.Metadata,
	}
}
