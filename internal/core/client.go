package core

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/duynhne/user-web/config"
	"github.com/duynhne/user-web/middleware"
)

// APIClient is the configured HTTP client for the remote users API.
// Outbound calls are traced and counted; no retries are attached.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPIClient builds the users API client from configuration.
// A zero Timeout leaves calls unbounded.
func NewAPIClient(cfg config.UsersAPIConfig) (*APIClient, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse users api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("users api base url %q must be absolute", cfg.BaseURL)
	}

	transport := middleware.InstrumentUsersAPI(
		middleware.TracingTransport(http.DefaultTransport),
	)

	return &APIClient{
		BaseURL: cfg.BaseURL,
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}, nil
}
