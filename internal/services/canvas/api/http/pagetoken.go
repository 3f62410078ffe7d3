package http

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// pageToken is the internal state of an opaque snapshot pagination token.
// Forward-only keyset paging: the next page starts after AfterID.
type pageToken struct {
	// AfterID is the last snapshot ID of the previous page.
	AfterID uint64 `json:"after_id"`
	// FilterHash invalidates the token if the creator filter changes.
	FilterHash string `json:"filter_hash,omitempty"`
}

// encodePageToken encodes a token to an opaque base64 string.
func encodePageToken(t pageToken) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal page token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// decodePageToken decodes an opaque base64 string and checks it against the
// current creator filter. A token minted under a different filter is
// rejected rather than silently returning the wrong page.
func decodePageToken(token, creator string) (pageToken, error) {
	if token == "" {
		return pageToken{}, fmt.Errorf("empty token")
	}
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return pageToken{}, fmt.Errorf("decode base64: %w", err)
	}
	var t pageToken
	if err := json.Unmarshal(data, &t); err != nil {
		return pageToken{}, fmt.Errorf("unmarshal page token: %w", err)
	}
	if t.FilterHash != hashFilter(creator) {
		return pageToken{}, fmt.Errorf("filter changed since token was created")
	}
	return t, nil
}

// hashFilter computes a short hash of the filter string for token validation.
// Returns empty string for empty filter.
func hashFilter(filter string) string {
	if filter == "" {
		return ""
	}
	h := sha256.Sum256([]byte(filter))
	return hex.EncodeToString(h[:8])
}
