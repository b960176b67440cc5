package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/revroute/internal/billing/domain"
)

const defaultBaseURL = "https://api.stripe.com"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewCollector(cfg domain.AdapterConfig) (domain.Collector, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, domain.ErrInvalidConfig
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Collector{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type Collector struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func (c *Collector) SuspendCollection(ctx context.Context, subscriptionRef string, resumeAt time.Time) error {
	form := url.Values{}
	form.Set("pause_collection[behavior]", "void")
	form.Set("pause_collection[resumes_at]", strconv.FormatInt(resumeAt.UTC().Unix(), 10))

	if err := c.post(ctx, "/v1/subscriptions/"+subscriptionRef, form, ""); err != nil {
		return &domain.ExternalServiceError{Op: "suspend_collection", Ref: subscriptionRef, Err: err}
	}
	return nil
}

func (c *Collector) ResumeCollection(ctx context.Context, subscriptionRef string) error {
	form := url.Values{}
	form.Set("pause_collection", "")

	err := c.post(ctx, "/v1/subscriptions/"+subscriptionRef, form, "")
	if err == nil {
		return nil
	}
	if isAlreadyInState(err) {
		return domain.ErrAlreadyInState
	}
	return &domain.ExternalServiceError{Op: "resume_collection", Ref: subscriptionRef, Err: err}
}

func (c *Collector) CreateNegativeInvoiceLine(ctx context.Context, customerRef string, amountMinorUnits int64, description, idempotencyKey string) error {
	form := url.Values{}
	form.Set("customer", customerRef)
	form.Set("amount", strconv.FormatInt(-abs(amountMinorUnits), 10))
	form.Set("currency", "gbp")
	form.Set("description", description)

	if err := c.post(ctx, "/v1/invoiceitems", form, idempotencyKey); err != nil {
		return &domain.ExternalServiceError{Op: "create_negative_invoice_line", Ref: customerRef, Err: err}
	}
	return nil
}

func (c *Collector) post(ctx context.Context, path string, form url.Values, idempotencyKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("http %d: %s (%s)", resp.StatusCode, apiErr.Error.Message, apiErr.Error.Code)
	}
	return fmt.Errorf("http %d", resp.StatusCode)
}

func isAlreadyInState(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not paused") || strings.Contains(msg, "no pause_collection")
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
