// Package riskapi calls the third-party token risk scoring endpoint.
package riskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"riskscan/internal/model"
)

// DefaultEndpoint is the AvengerDAO-backed risk endpoint used by the swap view.
const DefaultEndpoint = "https://red.alert.pancakeswap.com/red-api"

const maxResponseBytes = 1 << 20

// ErrFetchFailed wraps every failure of a risk lookup: transport, status, or parse.
var ErrFetchFailed = errors.New("risk fetch failed")

// Config controls the HTTP client.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Client fetches risk results over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client. A zero timeout leaves the transport defaults in place.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type request struct {
	ChainID uint64 `json:"chainId"`
	Address string `json:"address"`
}

// response accepts both a flat {"riskLevel": ...} body and the {"data": {"band": ...}} envelope.
type response struct {
	RiskLevel string    `json:"riskLevel"`
	Data      *bandData `json:"data"`
}

type bandData struct {
	Band      json.RawMessage `json:"band"`
	ScannedTs json.RawMessage `json:"scanned_ts"`
}

// FetchRiskToken looks up the risk level of a token contract.
func (c *Client) FetchRiskToken(ctx context.Context, address string, chainID uint64) (model.RiskResult, error) {
	body, err := json.Marshal(request{ChainID: chainID, Address: address})
	if err != nil {
		return model.RiskResult{}, fail("marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.RiskResult{}, fail("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.RiskResult{}, fail("send request", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.RiskResult{}, fail("read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("risk endpoint status",
			zap.Int("status", resp.StatusCode),
			zap.Uint64("chain_id", chainID),
			zap.String("address", address),
		)
		return model.RiskResult{}, fail("unexpected status", fmt.Errorf("%d", resp.StatusCode))
	}

	result, err := parseResponse(payload)
	if err != nil {
		return model.RiskResult{}, fail("parse response", err)
	}
	result.ChainID = chainID
	result.Address = address
	return result, nil
}

func parseResponse(payload []byte) (model.RiskResult, error) {
	var decoded response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return model.RiskResult{}, err
	}

	if level := strings.TrimSpace(decoded.RiskLevel); level != "" {
		return model.RiskResult{RiskLevel: model.RiskLevel(level)}, nil
	}
	if decoded.Data == nil {
		return model.RiskResult{}, fmt.Errorf("missing risk level")
	}

	band := rawScalar(decoded.Data.Band)
	if band == "" {
		return model.RiskResult{}, fmt.Errorf("missing band")
	}
	result := model.RiskResult{RiskLevel: model.RiskLevelFromBand(band)}
	if ts := rawScalar(decoded.Data.ScannedTs); ts != "" {
		if secs, err := strconv.ParseInt(ts, 10, 64); err == nil {
			result.ScannedAt = time.Unix(secs, 0).UTC()
		}
	}
	return result, nil
}

// rawScalar reads a JSON string or number as text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func fail(step string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrFetchFailed, step, err)
}
