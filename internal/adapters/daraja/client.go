// Package daraja implements the M-Pesa Daraja API client: OAuth token
// acquisition, STK push initiation and STK push status queries.
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prive-wellness/payments-service/internal/config"
	"github.com/prive-wellness/payments-service/internal/core/domain"
	"github.com/prive-wellness/payments-service/internal/core/ports"
)

type Client struct {
	baseURL     string
	shortcode   string
	passkey     string
	consumerKey string
	consumerSec string
	callbackURL string
	httpClient  *http.Client
	now         func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewClient(cfg config.DarajaConfig) ports.GatewayPort {
	return &Client{
		baseURL:     cfg.BaseURL,
		shortcode:   cfg.Shortcode,
		passkey:     cfg.Passkey,
		consumerKey: cfg.ConsumerKey,
		consumerSec: cfg.ConsumerSecret,
		callbackURL: cfg.CallbackURL,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
		now: time.Now,
	}
}

// STKPush prompts the customer's phone for payment. The phone number must
// already be in canonical 254... form.
func (c *Client) STKPush(ctx context.Context, req domain.STKPushRequest) (*domain.STKPushResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, domain.NewGatewayAuthError(err)
	}

	timestamp := domain.FormatGatewayTimestamp(c.now())
	body := stkPushRequest{
		BusinessShortCode: c.shortcode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount,
		PartyA:            req.Phone,
		PartyB:            c.shortcode,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.callbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}

	var resp stkPushResponse
	if err := c.postJSON(ctx, "/mpesa/stkpush/v1/processrequest", token, body, &resp); err != nil {
		return nil, err
	}

	if resp.ErrorCode != "" {
		return nil, domain.NewGatewayRequestError(resp.ErrorMessage, nil)
	}
	if resp.ResponseCode != "0" {
		return nil, domain.NewGatewayRequestError(resp.ResponseDescription, nil)
	}

	return &domain.STKPushResult{
		MerchantRequestID:   resp.MerchantRequestID,
		CheckoutRequestID:   resp.CheckoutRequestID,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
	}, nil
}

// STKQuery asks the gateway for the authoritative outcome of an earlier push.
func (c *Client) STKQuery(ctx context.Context, checkoutRequestID string) (*domain.STKQueryResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, domain.NewGatewayAuthError(err)
	}

	timestamp := domain.FormatGatewayTimestamp(c.now())
	body := stkQueryRequest{
		BusinessShortCode: c.shortcode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	var resp stkQueryResponse
	if err := c.postJSON(ctx, "/mpesa/stkpushquery/v1/query", token, body, &resp); err != nil {
		return nil, err
	}

	if resp.ErrorCode != "" {
		return nil, domain.NewGatewayRequestError(resp.ErrorMessage, nil)
	}

	resultCode, err := strconv.Atoi(resp.ResultCode)
	if err != nil {
		return nil, domain.NewGatewayRequestError("gateway returned non-numeric result code: "+resp.ResultCode, err)
	}

	return &domain.STKQueryResult{
		CheckoutRequestID: resp.CheckoutRequestID,
		ResultCode:        resultCode,
		ResultDesc:        resp.ResultDesc,
	}, nil
}

// password implements the gateway's documented signature scheme:
// base64(shortcode + passkey + timestamp).
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.shortcode + c.passkey + timestamp))
}

// accessToken returns a cached bearer token, fetching a fresh one when the
// cached token is within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	url := c.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}
	httpReq.SetBasicAuth(c.consumerKey, c.consumerSec)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("error decoding token response: %w", err)
	}

	expiresIn, err := strconv.Atoi(tr.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3599
	}

	c.token = tr.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, req, resp any) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("error marshalling json: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.NewGatewayRequestError("gateway request failed", err)
	}
	defer httpResp.Body.Close()

	// Daraja reports request-level errors with non-200 statuses and a JSON
	// body carrying errorCode/errorMessage; decode those too.
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return domain.NewGatewayRequestError(
			fmt.Sprintf("gateway returned undecodable response (status %d)", httpResp.StatusCode), err)
	}

	return nil
}
