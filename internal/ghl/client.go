// Package ghl is a minimal client for the GoHighLevel v1 REST API, covering
// the endpoints the sync loop needs: pipeline discovery, opportunity listing
// and monetary value updates.
package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/loanops/commsync/internal/config"
	"github.com/loanops/commsync/internal/model"
	"github.com/loanops/commsync/internal/pkg/apperrors"
	"github.com/loanops/commsync/internal/pkg/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Client defines the CRM surface consumed by the poller and reconciler.
type Client interface {
	// Pipelines lists the account's sales pipelines.
	Pipelines(ctx context.Context) ([]model.Pipeline, error)
	// Opportunities lists all opportunities of one pipeline, following
	// pagination until exhausted.
	Opportunities(ctx context.Context, pipelineID string) ([]model.Opportunity, error)
	// Opportunity fetches a single opportunity by ID.
	Opportunity(ctx context.Context, pipelineID, opportunityID string) (*model.Opportunity, error)
	// UpdateOpportunityValue sets the opportunity's monetaryValue field.
	UpdateOpportunityValue(ctx context.Context, pipelineID, opportunityID string, value decimal.Decimal) error
}

type HTTPClient struct {
	baseURL    string
	token      string
	locationID string
	status     string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

func NewClient(cfg *config.GHLConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		token:      cfg.AccessToken,
		locationID: extractLocationID(cfg.AccessToken),
		status:     cfg.OpportunityStatus,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: cfg.Timeout(),
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
}

type pipelinesResponse struct {
	Pipelines []model.Pipeline `json:"pipelines"`
}

func (c *HTTPClient) Pipelines(ctx context.Context) ([]model.Pipeline, error) {
	query := url.Values{}
	if c.locationID != "" {
		query.Set("locationId", c.locationID)
	}
	var resp pipelinesResponse
	if err := c.do(ctx, http.MethodGet, "/pipelines/", query, nil, &resp, "pipelines"); err != nil {
		return nil, err
	}
	return resp.Pipelines, nil
}

type opportunitiesResponse struct {
	Opportunities []model.Opportunity `json:"opportunities"`
	Meta          struct {
		StartAfterID string `json:"startAfterId"`
		StartAfter   int64  `json:"startAfter"`
	} `json:"meta"`
}

func (c *HTTPClient) Opportunities(ctx context.Context, pipelineID string) ([]model.Opportunity, error) {
	path := fmt.Sprintf("/pipelines/%s/opportunities", pipelineID)

	var all []model.Opportunity
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.pageSize))
	if c.status != "" {
		query.Set("status", c.status)
	}

	for {
		var page opportunitiesResponse
		if err := c.do(ctx, http.MethodGet, path, query, nil, &page, "opportunities"); err != nil {
			return nil, err
		}
		all = append(all, page.Opportunities...)

		if len(page.Opportunities) < c.pageSize || page.Meta.StartAfterID == "" {
			return all, nil
		}
		query.Set("startAfterId", page.Meta.StartAfterID)
		query.Set("startAfter", strconv.FormatInt(page.Meta.StartAfter, 10))
	}
}

func (c *HTTPClient) Opportunity(ctx context.Context, pipelineID, opportunityID string) (*model.Opportunity, error) {
	path := fmt.Sprintf("/pipelines/%s/opportunities/%s", pipelineID, opportunityID)
	var opp model.Opportunity
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &opp, "opportunity"); err != nil {
		return nil, err
	}
	if opp.PipelineID == "" {
		opp.PipelineID = pipelineID
	}
	return &opp, nil
}

func (c *HTTPClient) UpdateOpportunityValue(ctx context.Context, pipelineID, opportunityID string, value decimal.Decimal) error {
	path := fmt.Sprintf("/pipelines/%s/opportunities/%s", pipelineID, opportunityID)
	payload := map[string]any{
		"monetaryValue": value.InexactFloat64(),
	}
	return c.do(ctx, http.MethodPut, path, nil, payload, nil, "update_value")
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any, endpoint string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.NewTransient("rate limiter interrupted", err)
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err)
		}
		reqBody = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return apperrors.Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.CRMLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CRMRequests.WithLabelValues(endpoint, "network_error").Inc()
		return apperrors.NewTransient(fmt.Sprintf("ghl %s %s failed", method, path), err)
	}
	defer resp.Body.Close()
	metrics.CRMRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if err := classifyStatus(resp, method, path); err != nil {
		return err
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewTransient(fmt.Sprintf("ghl %s %s: malformed response", method, path), err)
	}
	return nil
}

func classifyStatus(resp *http.Response, method, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("ghl %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewAuth(msg, nil)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewNotFound(msg)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperrors.NewTransient(msg, nil)
	default:
		return apperrors.New(apperrors.ErrInternal, msg, nil)
	}
}
