package facematch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/campusroll/rollcall/internal/pkg/apperrors"
)

// FacenetClient calls the face-recognition sidecar to turn a raw image into a
// descriptor. Clients are expected to compute descriptors on device; this is
// the server-side fallback for raw image uploads.
type FacenetClient struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// NewFacenetClient creates a client with a configurable timeout. With skip
// set the client returns a fixed mock embedding, for development without the
// sidecar running.
func NewFacenetClient(baseURL string, timeout time.Duration, skip bool) *FacenetClient {
	if timeout <= 0 {
		timeout = 30 * time.Second // descriptor extraction can be slow
	}
	return &FacenetClient{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

// Embed requests a descriptor for a base64-encoded image. Returns
// apperrors.ErrNoFaceDetected when the sidecar finds no face.
func (c *FacenetClient) Embed(ctx context.Context, imageBase64 string) ([]float64, error) {
	if c.Skip {
		return []float64{0.1, 0.2, 0.3}, nil
	}
	if imageBase64 == "" {
		return nil, apperrors.ErrNoFaceDetected
	}

	body, _ := json.Marshal(map[string]string{"image_base64": imageBase64})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Embedding     []float64 `json:"embedding"`
		FacesDetected int       `json:"faces_detected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.FacesDetected == 0 || len(out.Embedding) == 0 {
		return nil, apperrors.ErrNoFaceDetected
	}

	return out.Embedding, nil
}

// Health checks if the face service is available.
func (c *FacenetClient) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}
