// Package client is a small Go client for the chart cache HTTP API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kjannette/chart-cache/internal/apperr"
	"github.com/kjannette/chart-cache/internal/models"
)

type Client struct {
	http *resty.Client
}

// APIError carries the status and detail of a non-2xx response. It unwraps to
// the matching apperr sentinel so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chart cache: HTTP %d: %s", e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return apperr.ErrUnauthorized
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusBadRequest:
		return apperr.ErrKeyMismatch
	case http.StatusRequestEntityTooLarge:
		return apperr.ErrTooLarge
	case http.StatusUnprocessableEntity:
		return apperr.ErrValidation
	}
	return nil
}

type errorBody struct {
	Detail string `json:"detail"`
}

// New returns a client for the API at baseURL. An empty apiKey sends no
// X-Api-Key header.
func New(baseURL, apiKey string) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		r.SetHeader("X-Api-Key", apiKey)
	}
	return &Client{http: r}
}

func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	var out models.HealthStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Get("/health")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetChart(ctx context.Context, basketID string, year int) (*models.ChartPayload, error) {
	var out models.ChartPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("basketId", basketID).
		SetQueryParam("year", strconv.Itoa(year)).
		SetResult(&out).
		SetError(&errorBody{}).
		Get("/charts/{basketId}")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutChart stores p under (p.BasketID, year) and returns the server's write
// timestamp in epoch milliseconds.
func (c *Client) PutChart(ctx context.Context, year int, p *models.ChartPayload) (int64, error) {
	var out models.WriteResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("basketId", p.BasketID).
		SetQueryParam("year", strconv.Itoa(year)).
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		SetResult(&out).
		SetError(&errorBody{}).
		Put("/charts/{basketId}")
	if err := check(resp, err); err != nil {
		return 0, err
	}
	return out.UpdatedAtMs, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("chart cache request: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	detail := http.StatusText(resp.StatusCode())
	if eb, ok := resp.Error().(*errorBody); ok && eb.Detail != "" {
		detail = eb.Detail
	}
	return &APIError{StatusCode: resp.StatusCode(), Detail: detail}
}
