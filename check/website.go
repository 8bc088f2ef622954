package check

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mailvet/mailvet/types"
)

// WebsiteConfig configures the website reachability probe.
type WebsiteConfig struct {
	// Timeout covers the whole request including redirects. Default: 10s.
	Timeout time.Duration
}

// WebsiteChecker determines whether a website answers HTTP at all.
// Transport failures never escape: they become an unreachable result
// with the error text in Details.
type WebsiteChecker struct {
	client *http.Client
}

func NewWebsiteChecker(cfg WebsiteConfig) *WebsiteChecker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WebsiteChecker{
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// NewWebsiteCheckerWithClient is a test-oriented constructor.
func NewWebsiteCheckerWithClient(client *http.Client) *WebsiteChecker {
	return &WebsiteChecker{client: client}
}

// Check probes the given website, which may be a bare domain or a full
// URL; a missing scheme defaults to https. HEAD is tried first, falling
// back to GET for servers that refuse HEAD.
func (c *WebsiteChecker) Check(ctx context.Context, website string) types.CheckResult {
	url := website
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}

	status, err := c.request(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = c.request(ctx, http.MethodGet, url)
	}
	if err != nil {
		return types.CheckResult{
			Stage:   types.StageWebsite,
			Reason:  types.ReasonWebsiteUnreachable,
			Details: fmt.Sprintf("request failed: %v", err),
		}
	}

	if status >= 200 && status < 400 {
		return types.CheckResult{
			Stage:   types.StageWebsite,
			Passed:  true,
			Details: fmt.Sprintf("HTTP %d", status),
		}
	}

	return types.CheckResult{
		Stage:   types.StageWebsite,
		Reason:  types.ReasonWebsiteUnreachable,
		Details: fmt.Sprintf("HTTP %d", status),
	}
}

func (c *WebsiteChecker) request(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode, nil
}
