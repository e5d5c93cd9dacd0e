package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Base URLs of the PayPal REST API.
const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"
)

// BaseURLForMode maps "live" to the live API and everything else to sandbox.
func BaseURLForMode(mode string) string {
	if mode == "live" {
		return LiveBaseURL
	}
	return SandboxBaseURL
}

// expiryMargin renews tokens slightly before PayPal expires them.
const expiryMargin = time.Minute

// PayPalClient calls the PayPal v1 payments API using client credentials.
type PayPalClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewPayPalClient creates a client. Each HTTP call is bounded by timeout.
func NewPayPalClient(baseURL, clientID, clientSecret string, timeout time.Duration, logger zerolog.Logger) *PayPalClient {
	return &PayPalClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger.With().Str("component", "paypal-client").Logger(),
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached bearer token, fetching a new one when needed.
func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &Error{StatusCode: http.StatusOK, Message: "empty access token"}
	}

	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - expiryMargin)

	c.logger.Debug().Int("expires_in", tok.ExpiresIn).Msg("obtained paypal access token")
	return c.token, nil
}

func (c *PayPalClient) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// CreatePayment creates a payment and returns it with its approval link.
func (c *PayPalClient) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*Payment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment request: %w", err)
	}

	payment, err := c.createPayment(ctx, body)
	var perr *Error
	if err != nil && errors.As(err, &perr) && perr.StatusCode == http.StatusUnauthorized {
		// Token revoked before its advertised expiry.
		c.clearToken()
		payment, err = c.createPayment(ctx, body)
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to create paypal payment")
		return nil, err
	}

	if _, ok := payment.ApprovalURL(); !ok {
		return nil, ErrNoApprovalURL
	}

	c.logger.Info().
		Str("payment_id", payment.ID).
		Str("state", payment.State).
		Msg("paypal payment created")

	return payment, nil
}

func (c *PayPalClient) createPayment(ctx context.Context, body []byte) (*Payment, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments/payment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	var payment Payment
	if err := c.do(httpReq, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx responses
// become *Error.
func (c *PayPalClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read paypal response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &Error{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, perr); jsonErr != nil || perr.Message == "" {
			// OAuth errors use error/error_description instead.
			var oauth struct {
				Error       string `json:"error"`
				Description string `json:"error_description"`
			}
			if json.Unmarshal(data, &oauth) == nil && oauth.Error != "" {
				perr.Name = oauth.Error
				perr.Message = oauth.Description
			} else if perr.Message == "" {
				perr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return perr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode paypal response: %w", err)
	}
	return nil
}
