// Package advice fetches and generates budget advice for a user's expenses.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/ports"
)

// Messages shown in place of advice.
const (
	FallbackMessage   = "Unable to generate budget advice at this time."
	NoExpensesMessage = "Add some expenses to get personalized budget advice."
)

// Request is the body of POST /api/budget-advice.
type Request struct {
	Expenses []core.ExpenseRecord `json:"expenses"`
}

// Response is the success body of POST /api/budget-advice.
type Response struct {
	Advice string `json:"advice"`
}

// Client calls the advice endpoint. It makes exactly one attempt per call.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *log.Logger
}

var _ ports.AdviceProvider = (*Client)(nil)

func NewClient(endpoint string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithComponent(log.ComponentAdvice),
	}
}

// Advice returns advice for records. An empty list returns NoExpensesMessage
// without calling the endpoint. Every failure is reported as core.ErrAdviceUnavailable.
func (c *Client) Advice(ctx context.Context, token string, records []core.ExpenseRecord) (string, error) {
	if len(records) == 0 {
		return NoExpensesMessage, nil
	}

	body, err := json.Marshal(Request{Expenses: records})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", core.ErrAdviceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", core.ErrAdviceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Advice request failed", log.FieldError, err)
		return "", fmt.Errorf("%w: %w", core.ErrAdviceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.WarnContext(ctx, "Advice endpoint returned error status",
			log.FieldStatusCode, resp.StatusCode,
			"body", strings.TrimSpace(string(snippet)))
		return "", fmt.Errorf("%w: status %d", core.ErrAdviceUnavailable, resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", core.ErrAdviceUnavailable, err)
	}
	advice := strings.TrimSpace(out.Advice)
	if advice == "" {
		return "", fmt.Errorf("%w: empty advice", core.ErrAdviceUnavailable)
	}

	c.logger.DebugContext(ctx, "Advice fetched",
		log.FieldCount, len(records),
		log.FieldDuration, time.Since(start).Milliseconds())
	return advice, nil
}

// Local serves advice from an in-process generator, skipping HTTP. Used when
// no external endpoint is configured.
type Local struct {
	Identity  ports.IdentityAccessor
	Generator ports.AdviceGenerator
}

func (l Local) Advice(ctx context.Context, _ string, records []core.ExpenseRecord) (string, error) {
	if len(records) == 0 {
		return NoExpensesMessage, nil
	}
	id := l.Identity.Identity(ctx)
	if !id.Authenticated {
		return "", fmt.Errorf("%w: %w", core.ErrAdviceUnavailable, core.ErrUnauthenticated)
	}
	advice, err := l.Generator.Generate(ctx, id.UserID, records)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrAdviceUnavailable, err)
	}
	return advice, nil
}
