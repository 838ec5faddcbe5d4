package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"time"

	"podoMarketAPI/internal/config"
)

const receiptKeyMaxLen = 24

var receiptKeyPattern = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// ReceiptService forwards cash receipt requests to the issuance
// provider. Callers treat it as advisory; a failed receipt never fails
// the payment it belongs to.
type ReceiptService struct {
	httpClient *http.Client
	cfg        config.Receipt
}

func NewReceiptService(cfg config.Receipt) *ReceiptService {
	return &ReceiptService{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cfg: cfg,
	}
}

type ReceiptParams struct {
	PaymentID  string
	Amount     int
	BuyerName  string
	BuyerPhone string
	TradeDate  time.Time
}

// SplitVAT breaks a VAT-inclusive total into supply cost and tax at the
// fixed 10% rate.
func SplitVAT(total int) (supply, tax int) {
	tax = int(math.Round(float64(total) * 10 / 110))
	return total - tax, tax
}

// SanitizeReceiptKey strips everything the provider rejects from an
// idempotency key and caps its length.
func SanitizeReceiptKey(s string) string {
	s = receiptKeyPattern.ReplaceAllString(s, "")
	if len(s) > receiptKeyMaxLen {
		s = s[:receiptKeyMaxLen]
	}
	return s
}

// IdentityFragment returns the trailing four digits of the buyer phone,
// which is all the provider wants for personal receipts.
func IdentityFragment(phone string) string {
	digits := regexp.MustCompile(`\D`).ReplaceAllString(phone, "")
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// Issue maps the payment onto the provider's cashbill schema and
// forwards it. This sub-API signals success with the numeric code 1.
func (s *ReceiptService) Issue(ctx context.Context, p ReceiptParams) error {
	if s.cfg.BaseURL == "" {
		return fmt.Errorf("receipt provider not configured")
	}

	supply, tax := SplitVAT(p.Amount)
	payload := map[string]any{
		"mgtKey":      SanitizeReceiptKey(p.PaymentID),
		"tradeDate":   p.TradeDate.Format("20060102"),
		"supplyCost":  supply,
		"tax":         tax,
		"totalAmount": p.Amount,
		"buyerName":   p.BuyerName,
		"identityNum": IdentityFragment(p.BuyerPhone),
		"tradeUsage":  "income",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal receipt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/cashbill", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("receipt provider error %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("decode receipt response: %w", err)
	}
	if result.Code != 1 {
		return fmt.Errorf("receipt rejected: code=%d msg=%s", result.Code, result.Message)
	}
	return nil
}
