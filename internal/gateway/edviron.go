package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/schoolpay/backend/internal/models"
)

// Client talks to the Edviron payment gateway. Outbound requests carry a
// bearer API key and a compact signed claim set (the "sign" field) produced
// with the PG secret.
type Client struct {
	baseURL     string
	apiKey      string
	pgSecret    string
	callbackURL string
	httpClient  *http.Client
}

func NewClient(baseURL, apiKey, pgSecret, callbackURL string) *Client {
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		pgSecret:    pgSecret,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CollectRequest is the input for creating a collect request with the gateway.
type CollectRequest struct {
	SchoolID    string
	Amount      float64
	TrusteeID   string
	StudentInfo models.StudentInfo
	Description string
}

// CollectResponse is the gateway's acknowledgement of a collect request.
type CollectResponse struct {
	CollectRequestID string
	PaymentURL       string
	Sign             string
}

// StatusResponse is the gateway's answer to a status check.
type StatusResponse struct {
	Status  string                 `json:"status"`
	Amount  float64                `json:"amount"`
	Details map[string]interface{} `json:"details"`
	JWT     string                 `json:"jwt"`
}

func (c *Client) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.pgSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign gateway payload: %v", err)
	}
	return signed, nil
}

func (c *Client) endpoint(path string) string {
	base := c.baseURL
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + "/" + path
}

// CreateCollectRequest submits a signed collect request. The first attempt
// sends the full payload; if the gateway rejects it, one retry goes out with
// the minimal payload (some gateway deployments reject unknown fields).
func (c *Client) CreateCollectRequest(ctx context.Context, req CollectRequest) (*CollectResponse, error) {
	amount := strconv.FormatFloat(req.Amount, 'f', -1, 64)

	signed, err := c.sign(jwt.MapClaims{
		"school_id":    req.SchoolID,
		"amount":       amount,
		"callback_url": c.callbackURL,
	})
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = "School fee payment"
	}

	fullBody := map[string]interface{}{
		"school_id":    req.SchoolID,
		"amount":       amount,
		"callback_url": c.callbackURL,
		"sign":         signed,
		"trustee_id":   req.TrusteeID,
		"student_info": req.StudentInfo,
		"description":  description,
	}
	minimalBody := map[string]interface{}{
		"school_id":    req.SchoolID,
		"amount":       amount,
		"callback_url": c.callbackURL,
		"sign":         signed,
	}

	apiURL := c.endpoint("create-collect-request")

	resp, firstErr := c.post(ctx, apiURL, fullBody)
	if firstErr != nil {
		log.Printf("Collect request with full payload failed, retrying with minimal payload: %v", firstErr)
		resp, err = c.post(ctx, apiURL, minimalBody)
		if err != nil {
			return nil, fmt.Errorf("collect request failed: %v", firstErr)
		}
	}
	defer resp.Body.Close()

	var body struct {
		CollectRequestID     string `json:"collect_request_id"`
		CollectRequestURL    string `json:"collect_request_url"`
		CollectRequestURLAlt string `json:"Collect_request_url"`
		PaymentURL           string `json:"payment_url"`
		Sign                 string `json:"sign"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %v", err)
	}

	// Gateway versions disagree on the redirect URL field name.
	paymentURL := body.CollectRequestURLAlt
	if paymentURL == "" {
		paymentURL = body.CollectRequestURL
	}
	if paymentURL == "" {
		paymentURL = body.PaymentURL
	}
	if paymentURL == "" {
		return nil, fmt.Errorf("payment URL not provided by gateway")
	}

	return &CollectResponse{
		CollectRequestID: body.CollectRequestID,
		PaymentURL:       paymentURL,
		Sign:             body.Sign,
	}, nil
}

// CheckStatus queries the gateway for the current state of a collect request.
// The signed token travels as a query parameter on this endpoint.
func (c *Client) CheckStatus(ctx context.Context, collectRequestID, schoolID string) (*StatusResponse, error) {
	signed, err := c.sign(jwt.MapClaims{
		"school_id":          schoolID,
		"collect_request_id": collectRequestID,
	})
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("school_id", schoolID)
	q.Set("sign", signed)
	statusURL := c.endpoint("collect-request/"+collectRequestID) + "?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("status check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status check failed with status %d: %s", resp.StatusCode, string(body))
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %v", err)
	}
	return &status, nil
}

func (c *Client) post(ctx context.Context, apiURL string, payload map[string]interface{}) (*http.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}
