package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	calculatePath   = "/api/v1/deduction-formulas/calculate"
	maxResponseSize = 64 << 10
)

// ErrUnavailable marks remote failures the caller may retry
var ErrUnavailable = errors.New("remote formula service unavailable")

type calculateRequest struct {
	FormulaID   uuid.UUID       `json:"formula_id"`
	GrossWeight decimal.Decimal `json:"gross_weight"`
	UnitCount   int             `json:"unit_count"`
}

type calculateResponse struct {
	FormulaID      uuid.UUID        `json:"formula_id"`
	GrossWeight    decimal.Decimal  `json:"gross_weight"`
	NetWeight      *decimal.Decimal `json:"net_weight"`
	TareWeight     *decimal.Decimal `json:"tare_weight"`
	Display        string           `json:"display"`
	FormulaDisplay string           `json:"formula_display"`
}

// envelope matches the success wrapper of the HTTP API
type envelope struct {
	Success bool              `json:"success"`
	Data    calculateResponse `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NetWeightClient evaluates deduction formulas on a remote formula service
type NetWeightClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewNetWeightClient creates a client for the service at baseURL
func NewNetWeightClient(baseURL, apiKey string, timeout time.Duration) *NetWeightClient {
	return &NetWeightClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Calculate implements catalog.NetWeightCalculator
func (c *NetWeightClient) Calculate(ctx context.Context, req catalog.CalculateNetWeightRequest) (catalog.CalculateNetWeightResult, error) {
	body, err := json.Marshal(calculateRequest{
		FormulaID:   req.FormulaID,
		GrossWeight: req.GrossWeight,
		UnitCount:   req.UnitCount,
	})
	if err != nil {
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("remote: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+calculatePath, bytes.NewReader(body))
	if err != nil {
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("remote: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("remote formula %s: %w", req.FormulaID, shared.ErrNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		if decodeErr == nil && env.Error != nil {
			return catalog.CalculateNetWeightResult{}, shared.NewDomainError(env.Error.Code, env.Error.Message)
		}
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("remote: request rejected: HTTP %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, decodeErr)
	}
	return toResult(req, env)
}

// toResult accepts only a successful answer whose net weight lies between
// zero and the gross weight sent
func toResult(req catalog.CalculateNetWeightRequest, env envelope) (catalog.CalculateNetWeightResult, error) {
	d := env.Data
	switch {
	case !env.Success:
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("%w: response not marked successful", ErrUnavailable)
	case d.NetWeight == nil:
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("%w: response has no net weight", ErrUnavailable)
	case d.NetWeight.IsNegative() || d.NetWeight.GreaterThan(req.GrossWeight):
		return catalog.CalculateNetWeightResult{}, fmt.Errorf("%w: net weight %s outside 0..%s", ErrUnavailable, d.NetWeight, req.GrossWeight)
	}

	tare := req.GrossWeight.Sub(*d.NetWeight)
	if d.TareWeight != nil {
		tare = *d.TareWeight
	}
	display := d.Display
	if display == "" {
		display = d.FormulaDisplay
	}
	return catalog.CalculateNetWeightResult{
		FormulaID:   req.FormulaID,
		GrossWeight: req.GrossWeight,
		NetWeight:   *d.NetWeight,
		TareWeight:  tare,
		Display:     display,
	}, nil
}

var _ catalog.NetWeightCalculator = (*NetWeightClient)(nil)
