package payple

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"podoMarketAPI/internal/config"
)

// Work selects the flavor of partner credential requested from the
// gateway: AUTH for charges, PUSERDEL for billing key deletion,
// PAYCANCEL for refunds.
type Work string

const (
	WorkAuth    Work = "AUTH"
	WorkUserDel Work = "PUSERDEL"
	WorkCancel  Work = "PAYCANCEL"
)

// Credential is the short-lived authorization bundle returned by
// auth.php. Every follow-up call within the flow needs it.
type Credential struct {
	CstID     string
	CustKey   string
	AuthKey   string
	PayReqURL string
}

// AuthError carries the gateway's raw auth payload so callers can
// attach it to their own error responses.
type AuthError struct {
	Result Result
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gateway auth rejected: code=%s msg=%s", e.Result.Code, e.Result.Message)
}

// ObserveFunc reports one gateway call for metrics. Wired to the
// prometheus collectors in main; nil disables reporting.
type ObserveFunc func(endpoint string, ok bool, duration time.Duration)

type Client struct {
	httpClient *http.Client
	cfg        config.Payple
	breaker    *gobreaker.CircuitBreaker[[]byte]
	observe    ObserveFunc
}

func NewClient(cfg config.Payple, observe ObserveFunc) *Client {
	settings := gobreaker.Settings{
		Name:    "payple",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		observe: observe,
	}
}

func (c *Client) post(ctx context.Context, endpoint, url string, payload map[string]any, header http.Header) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", endpoint, err)
	}

	start := time.Now()
	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("http new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Cache-Control", "no-cache")
		if c.cfg.Referer != "" {
			req.Header.Set("Referer", c.cfg.Referer)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http client do: %w", err)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("gateway error %d: %s", resp.StatusCode, string(b))
		}
		return b, nil
	})
	if c.observe != nil {
		c.observe(endpoint, err == nil, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// Authenticate obtains a work-specific partner credential. A non-success
// result is returned as *AuthError and is never retried here.
func (c *Client) Authenticate(ctx context.Context, work Work) (*Credential, error) {
	payload := map[string]any{
		"cst_id":       c.cfg.CstID,
		"custKey":      c.cfg.CustKey,
		"PCD_PAY_WORK": string(work),
	}
	if work == WorkCancel {
		payload["PCD_PAYCANCEL_FLAG"] = "Y"
	}

	body, err := c.post(ctx, "auth", c.cfg.BaseURL+"/php/auth.php", payload, nil)
	if err != nil {
		return nil, err
	}

	res := authResult.normalize(body)
	if !res.OK {
		return nil, &AuthError{Result: res}
	}

	payURL := res.str("PCD_PAY_HOST") + res.str("PCD_PAY_URL")
	if payURL == "" {
		payURL = res.str("return_url")
	}
	return &Credential{
		CstID:     res.str("cst_id"),
		CustKey:   res.str("custKey"),
		AuthKey:   res.str("AuthKey"),
		PayReqURL: payURL,
	}, nil
}

type ChargeParams struct {
	BillingKey string
	OrderID    string
	Goods      string
	Amount     int
}

// ChargeBillingKey runs a saved-payment-method charge against the URL
// the AUTH credential pointed at.
func (c *Client) ChargeBillingKey(ctx context.Context, cred *Credential, p ChargeParams) (Result, error) {
	payload := map[string]any{
		"PCD_CST_ID":      cred.CstID,
		"PCD_CUST_KEY":    cred.CustKey,
		"PCD_AUTH_KEY":    cred.AuthKey,
		"PCD_PAY_TYPE":    "card",
		"PCD_SIMPLE_FLAG": "Y",
		"PCD_PAYER_ID":    p.BillingKey,
		"PCD_PAY_GOODS":   p.Goods,
		"PCD_PAY_TOTAL":   p.Amount,
		"PCD_PAY_OID":     p.OrderID,
	}
	body, err := c.post(ctx, "charge", cred.PayReqURL, payload, nil)
	if err != nil {
		return Result{}, err
	}
	return paymentResult.normalize(body), nil
}

// DeleteBillingKey revokes a saved payment method. Needs a PUSERDEL
// credential.
func (c *Client) DeleteBillingKey(ctx context.Context, cred *Credential, billingKey string) (Result, error) {
	payload := map[string]any{
		"PCD_CST_ID":   cred.CstID,
		"PCD_CUST_KEY": cred.CustKey,
		"PCD_AUTH_KEY": cred.AuthKey,
		"PCD_PAYER_ID": billingKey,
	}
	body, err := c.post(ctx, "user_del", cred.PayReqURL, payload, nil)
	if err != nil {
		return Result{}, err
	}
	return paymentResult.normalize(body), nil
}

type RefundParams struct {
	PaymentID   string
	PaymentDate time.Time
	Amount      int
}

// Refund cancels a settled payment. Needs a PAYCANCEL credential; the
// gateway wants the original payment date as yyyyMMdd.
func (c *Client) Refund(ctx context.Context, cred *Credential, p RefundParams) (Result, error) {
	payload := map[string]any{
		"PCD_CST_ID":         cred.CstID,
		"PCD_CUST_KEY":       cred.CustKey,
		"PCD_AUTH_KEY":       cred.AuthKey,
		"PCD_REFUND_KEY":     c.cfg.RefundKey,
		"PCD_PAYCANCEL_FLAG": "Y",
		"PCD_PAY_OID":        p.PaymentID,
		"PCD_PAY_DATE":       p.PaymentDate.Format("20060102"),
		"PCD_REFUND_TOTAL":   p.Amount,
	}
	body, err := c.post(ctx, "refund", cred.PayReqURL, payload, nil)
	if err != nil {
		return Result{}, err
	}
	return paymentResult.normalize(body), nil
}

// oauthToken fetches a bearer token from the legacy gpay token
// endpoint. That sub-API signals success with the "T0000" sentinel, not
// the word success.
func (c *Client) oauthToken(ctx context.Context) (string, error) {
	payload := map[string]any{
		"service_id":  c.cfg.ServiceID,
		"service_key": c.cfg.ServiceKey,
		"code":        c.cfg.ServiceCode,
	}
	body, err := c.post(ctx, "oauth", c.cfg.BaseURL+"/gpay/oauth/1.0/token", payload, nil)
	if err != nil {
		return "", err
	}
	res := oauthResult.normalize(body)
	if !res.OK {
		return "", &AuthError{Result: res}
	}
	return res.str("access_token"), nil
}

type ConfirmParams struct {
	ConfirmURL string // PCD_PAY_COFURL from the callback; empty falls back to the default
	AuthKey    string // PCD_AUTH_KEY echoed by the callback
	ReqKey     string // PCD_PAY_REQKEY, the authorization reference
	BillingKey string
}

// ConfirmPayment settles a Pass-style app-card payment after the client
// callback. The confirm endpoint additionally wants a gpay bearer token.
func (c *Client) ConfirmPayment(ctx context.Context, p ConfirmParams) (Result, error) {
	token, err := c.oauthToken(ctx)
	if err != nil {
		return Result{}, err
	}

	url := p.ConfirmURL
	if url == "" {
		url = c.cfg.BaseURL + "/php/PayCardConfirmAct.php"
	}
	payload := map[string]any{
		"PCD_CST_ID":     c.cfg.CstID,
		"PCD_CUST_KEY":   c.cfg.CustKey,
		"PCD_AUTH_KEY":   p.AuthKey,
		"PCD_PAY_REQKEY": p.ReqKey,
		"PCD_PAYER_ID":   p.BillingKey,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	body, err := c.post(ctx, "confirm", url, payload, header)
	if err != nil {
		return Result{}, err
	}
	return paymentResult.normalize(body), nil
}
