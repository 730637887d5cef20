// =============================================================================
// LEI Enricher - Registry Client
// =============================================================================
//
// This module fetches legal-entity records from the GLEIF lei-records API.
//
// REQUEST FORMAT:
//   GET {base_url}?filter[lei]=LEI1, LEI2, ...&page[size]=N
//
// RETRY POLICY:
//   Each request is tried up to MaxAttempts times. Transport failures and
//   non-2xx statuses are retried, optionally after a fixed RetryDelay.
//   A body that cannot be decoded is not retried. When every attempt fails
//   the client returns a *LookupError in CategoryRetriesExhausted; it is the
//   caller's decision to stop the run.
//
// =============================================================================

package registry

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

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/lei-enricher/internal/config"
)

// FilterParam is the query key the registry filters identifiers on.
const FilterParam = "filter[lei]"

// PageSizeParam is the query key for the page size.
const PageSizeParam = "page[size]"

// identifierSeparator joins identifiers inside the filter value.
const identifierSeparator = ", "

// maxErrorBody bounds how much of an error response is kept for the message.
const maxErrorBody = 512

// =============================================================================
// CLIENT
// =============================================================================

// Client looks up LEI records with bounded retries.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxAttempts int
	retryDelay  time.Duration
	timeout     time.Duration
	batchSize   int
	logger      zerolog.Logger
}

// NewClient creates a registry client from the registry configuration.
//
// PARAMETERS:
//   - cfg: Registry settings (base URL, attempts, delay, timeout, batch size).
//   - httpClient: The HTTP client to use. Nil means http.DefaultClient.
//   - logger: Receives one line per failed attempt.
func NewClient(cfg config.RegistryConfig, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient:  httpClient,
		baseURL:     cfg.BaseURL,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		timeout:     cfg.Timeout,
		batchSize:   cfg.BatchSize,
		logger:      logger.With().Str("component", "registry").Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = config.DefaultRegistryURL
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = config.DefaultMaxAttempts
	}
	if c.timeout <= 0 {
		c.timeout = config.DefaultRequestTimeout
	}
	if c.batchSize <= 0 {
		c.batchSize = config.DefaultBatchSize
	}
	return c
}

// =============================================================================
// LOOKUP
// =============================================================================

// Lookup fetches the records for the given identifiers.
//
// PARAMETERS:
//   - ctx: Cancels the lookup, including any pending retry.
//   - leis: Unique identifiers. The caller deduplicates.
//
// RETURNS:
//   - The decoded records, in registry order. There may be fewer records than
//     identifiers.
//   - A *LookupError when the registry could not be read.
func (c *Client) Lookup(ctx context.Context, leis []string) ([]Entity, error) {
	if len(leis) == 0 {
		return nil, ErrNoIdentifiers
	}

	var entities []Entity
	for start := 0; start < len(leis); start += c.batchSize {
		end := start + c.batchSize
		if end > len(leis) {
			end = len(leis)
		}

		batch, err := c.fetchWithRetry(ctx, leis[start:end])
		if err != nil {
			return nil, err
		}
		entities = append(entities, batch...)
	}

	c.logger.Debug().
		Int("requested", len(leis)).
		Int("received", len(entities)).
		Msg("registry lookup complete")

	return entities, nil
}

// fetchWithRetry runs one batch request under the retry policy.
func (c *Client) fetchWithRetry(ctx context.Context, leis []string) ([]Entity, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		entities, err := c.fetch(ctx, leis)
		if err == nil {
			return entities, nil
		}

		if ctx.Err() != nil {
			return nil, &LookupError{
				Category:   CategoryCanceled,
				Attempts:   attempt,
				Message:    "lookup canceled",
				Underlying: ctx.Err(),
			}
		}
		if !IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Msgf("Attempt %d Error", attempt)

		if attempt < c.maxAttempts && c.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, &LookupError{
					Category:   CategoryCanceled,
					Attempts:   attempt,
					Message:    "lookup canceled",
					Underlying: ctx.Err(),
				}
			case <-time.After(c.retryDelay):
			}
		}
	}

	c.logger.Error().Int("attempts", c.maxAttempts).Msg("All retry attempts have failed.")

	return nil, &LookupError{
		Category:   CategoryRetriesExhausted,
		Attempts:   c.maxAttempts,
		Message:    "all retry attempts have failed",
		Underlying: lastErr,
	}
}

// fetch performs a single HTTP request.
func (c *Client) fetch(ctx context.Context, leis []string) ([]Entity, error) {
	reqURL, err := c.buildURL(leis)
	if err != nil {
		return nil, &LookupError{Category: CategoryBadData, Message: "invalid registry URL", Underlying: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &LookupError{Category: CategoryBadData, Message: "failed to build request", Underlying: err}
	}
	req.Header.Set("Accept", "application/vnd.api+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &LookupError{Category: CategoryTransport, Message: "request failed", Underlying: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LookupError{Category: CategoryTransport, Message: "failed to read response body", Underlying: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LookupError{
			Category:   CategoryUpstreamStatus,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), maxErrorBody)),
		}
	}

	return parseRecords(body)
}

// buildURL encodes the identifiers into the filter query parameter.
func (c *Client) buildURL(leis []string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(FilterParam, strings.Join(leis, identifierSeparator))
	q.Set(PageSizeParam, strconv.Itoa(c.batchSize))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parseRecords decodes a lei-records body into entities.
func parseRecords(body []byte) ([]Entity, error) {
	var payload recordsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &LookupError{Category: CategoryBadData, Message: "failed to decode registry response", Underlying: err}
	}

	entities := make([]Entity, 0, len(payload.Data))
	for _, record := range payload.Data {
		entities = append(entities, record.toEntity())
	}
	return entities, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
