package charging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

type HTTPClient struct {
	baseURL   string
	apiKey    string
	accountID string
	breaker   *gobreaker.CircuitBreaker
}

type chargeRequest struct {
	AccountID string `json:"account_id"`
	Kind      string `json:"kind"`
	Count     int    `json:"count"`
}

type chargeResponse struct {
	LimitReached bool `json:"limit_reached"`
}

func NewHTTPClient(baseURL, apiKey, accountID string) *HTTPClient {
	settings := gobreaker.Settings{
		Name:        "charging",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &HTTPClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		accountID: accountID,
		breaker:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (c *HTTPClient) Charge(ctx context.Context, kind Kind, count int) (*Result, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.charge(ctx, kind, count)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Result), nil
}

func (c *HTTPClient) charge(ctx context.Context, kind Kind, count int) (*Result, error) {
	body, err := json.Marshal(chargeRequest{
		AccountID: c.accountID,
		Kind:      string(kind),
		Count:     count,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/charges", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// 402 is the service's out-of-band way of reporting the billing cap.
	if resp.StatusCode == http.StatusPaymentRequired {
		return &Result{LimitReached: true}, nil
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("charging api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var chargeResp chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&chargeResp); err != nil {
		return nil, err
	}

	return &Result{LimitReached: chargeResp.LimitReached}, nil
}
