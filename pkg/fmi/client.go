package fmi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient interface for HTTP operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WFSClient issues GetFeature requests against a WFS 2.0.0 endpoint
type WFSClient struct {
	baseURL    string
	httpClient HTTPClient
	logger     *slog.Logger
}

// NewWFSClient creates a client for the WFS at baseURL. A nil httpClient
// falls back to http.DefaultClient; no timeout is imposed beyond what the
// caller's context carries.
func NewWFSClient(httpClient HTTPClient, baseURL string, logger *slog.Logger) *WFSClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WFSClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.With("module", "wfs"),
	}
}

// GetFeature runs a stored query and returns the response body. There are no
// retries: the first failure is returned as a *TransportError,
// *ServiceStatusError or *ServiceExceptionError.
func (c *WFSClient) GetFeature(ctx context.Context, storedQueryID string, params []Parameter) (string, error) {
	requestURL := c.buildURL(storedQueryID, params)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", &TransportError{URL: requestURL, Err: err}
	}

	c.logger.Debug("requesting FMI WFS", "url", requestURL)
	started := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		requestCounter.WithLabelValues("transport").Inc()
		return "", &TransportError{URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	requestHistogram.Observe(time.Since(started).Seconds())
	if err != nil {
		requestCounter.WithLabelValues("transport").Inc()
		return "", &TransportError{URL: requestURL, Err: err}
	}
	body := string(bodyBytes)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		requestCounter.WithLabelValues("status").Inc()
		statusErr := &ServiceStatusError{
			URL:        requestURL,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Preview:    preview(body),
		}
		if strings.Contains(body, "ExceptionReport") {
			statusErr.Code, statusErr.Texts = decodeExceptionReport(body)
		}
		return "", statusErr
	}

	if strings.Contains(body, "ExceptionReport") {
		requestCounter.WithLabelValues("exception").Inc()
		return "", newServiceExceptionError(body)
	}

	requestCounter.WithLabelValues("ok").Inc()
	c.logger.Debug("FMI WFS request successful", "status", resp.StatusCode, "bytes", len(bodyBytes))

	return body, nil
}

// buildURL places the fixed protocol parameters first and the caller's
// parameters after them, in the order given.
func (c *WFSClient) buildURL(storedQueryID string, params []Parameter) string {
	query := []Parameter{
		{Key: "service", Value: "WFS"},
		{Key: "version", Value: "2.0.0"},
		{Key: "request", Value: "GetFeature"},
		{Key: "storedquery_id", Value: storedQueryID},
	}
	query = append(query, params...)

	var b strings.Builder
	for i, p := range query {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}

	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}

	return c.baseURL + sep + b.String()
}
