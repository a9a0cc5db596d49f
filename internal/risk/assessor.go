// Package risk answers the high-risk predicate gating referrals.
// Callers fail closed: any error here means "not high risk".
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type Assessor interface {
	IsHighRisk(ctx context.Context, patientID uuid.UUID) (bool, error)
}

// HTTPAssessor queries an external screening service.
type HTTPAssessor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAssessor(baseURL string, timeout time.Duration) *HTTPAssessor {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPAssessor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type riskResponse struct {
	HighRisk bool `json:"high_risk"`
}

func (a *HTTPAssessor) IsHighRisk(ctx context.Context, patientID uuid.UUID) (bool, error) {
	url := fmt.Sprintf("%s/patients/%s/risk", a.baseURL, patientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build risk request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call risk assessor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("risk assessor returned status %d", resp.StatusCode)
	}

	var out riskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode risk response: %w", err)
	}
	return out.HighRisk, nil
}

// Denied treats every patient as not high risk. Default when no
// assessor endpoint is configured.
type Denied struct{}

func (Denied) IsHighRisk(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

// Static answers from a fixed set, for tests and local development.
type Static map[uuid.UUID]bool

func (s Static) IsHighRisk(_ context.Context, patientID uuid.UUID) (bool, error) {
	return s[patientID], nil
}
