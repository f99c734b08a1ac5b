package carbon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"codeberg.org/mutker/gpucarbon/internal/errors"
)

const defaultAPIURL = "https://api.electricitymap.org/v3/carbon-intensity/latest"

// HTTPClient interface allows mocking http.Client in tests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Electricity Maps carbon-intensity API. It performs a
// single bounded attempt per call; retries are pointless here because the
// caller falls back to mocked values on any failure.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient HTTPClient
}

// ClientOption allows customizing the client
type ClientOption func(*Client)

// WithHTTPClient allows injecting a custom HTTP client
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIURL overrides the API endpoint, used by tests
func WithAPIURL(apiURL string) ClientOption {
	return func(c *Client) {
		c.apiURL = apiURL
	}
}

// NewClient creates an API client with the given credential and request
// timeout.
func NewClient(apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	client := &Client{
		apiURL: defaultAPIURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// intensityResponse uses a pointer so a body that decodes without the
// carbonIntensity field is distinguishable from a genuine zero.
type intensityResponse struct {
	CarbonIntensity *float64 `json:"carbonIntensity"`
}

// FetchIntensity fetches the current carbon intensity for a zone in
// grams CO2 per kWh.
func (c *Client) FetchIntensity(ctx context.Context, zone string) (float64, error) {
	errFactory := errors.New()

	if zone == "" {
		return 0, errFactory.New(ErrEmptyZone)
	}

	endpoint := c.apiURL + "?" + url.Values{"zone": {zone}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, errFactory.Wrap(ErrRequestFailed, err)
	}

	req.Header.Set("auth-token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errFactory.Wrap(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errFactory.WithData(ErrUnexpectedStatus, resp.StatusCode)
	}

	var data intensityResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, errFactory.Wrap(ErrMalformedResponse, err)
	}

	if data.CarbonIntensity == nil {
		return 0, errFactory.WithData(ErrMalformedResponse, "missing carbonIntensity field")
	}

	if *data.CarbonIntensity < 0 {
		return 0, errFactory.WithData(ErrInvalidIntensity, *data.CarbonIntensity)
	}

	return *data.CarbonIntensity, nil
}
