// Package meeting obtains video meeting links for booked appointments.
// Link creation is best-effort: callers keep the booking when it fails.
package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type Provider interface {
	// Create returns a join URL for the given window, or an empty
	// string when the provider has nothing to offer.
	Create(ctx context.Context, subject string, startUTC, endUTC time.Time) (string, error)
}

// HTTPProvider calls an external link service over JSON.
type HTTPProvider struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewHTTPProvider(endpoint string, timeout time.Duration, log zerolog.Logger) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

type createRequest struct {
	Subject string    `json:"subject"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

type createResponse struct {
	URL string `json:"url"`
}

func (p *HTTPProvider) Create(ctx context.Context, subject string, startUTC, endUTC time.Time) (string, error) {
	body, err := json.Marshal(createRequest{Subject: subject, Start: startUTC, End: endUTC})
	if err != nil {
		return "", fmt.Errorf("encode link request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build link request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call link provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("link provider returned status %d", resp.StatusCode)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode link response: %w", err)
	}
	return out.URL, nil
}

// Disabled hands out no links and never fails. Used when no link
// provider is configured.
type Disabled struct{}

func (Disabled) Create(context.Context, string, time.Time, time.Time) (string, error) {
	return "", nil
}
