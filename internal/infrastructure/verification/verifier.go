package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iho/goauction/internal/domain"
)

const maxResponseBytes = 1 << 20

// HTTPVerifier asks a remote content screening service to review listing media.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// NewHTTPVerifier creates a verifier posting to url.
func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	Media       domain.Media `json:"media"`
	Description string       `json:"description"`
}

// Verify submits media and description for review.
func (v *HTTPVerifier) Verify(ctx context.Context, media domain.Media, description string) (*domain.Verification, error) {
	body, err := json.Marshal(verifyRequest{Media: media, Description: description})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("verification service returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var result domain.Verification
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode verification response: %w", err)
	}

	return &result, nil
}

// StaticVerifier returns the same verdict for every listing.
type StaticVerifier struct {
	approved bool
	message  string
}

// NewApproveAll returns a verifier that approves every listing.
func NewApproveAll() *StaticVerifier {
	return &StaticVerifier{approved: true, message: "automatic approval"}
}

// Verify returns the fixed verdict.
func (v *StaticVerifier) Verify(ctx context.Context, media domain.Media, description string) (*domain.Verification, error) {
	return &domain.Verification{Approved: v.approved, Message: v.message}, nil
}
