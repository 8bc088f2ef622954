package check_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mailvet/mailvet/check"
	"github.com/mailvet/mailvet/types"
)

func TestWebsiteChecker_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := check.NewWebsiteCheckerWithClient(srv.Client())
	result := c.Check(context.Background(), srv.URL)
	assert.True(t, result.Passed)
	assert.Equal(t, types.StageWebsite, result.Stage)
	assert.Contains(t, result.Details, "200")
}

func TestWebsiteChecker_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := check.NewWebsiteCheckerWithClient(srv.Client())
	result := c.Check(context.Background(), srv.URL)
	assert.False(t, result.Passed)
	assert.Equal(t, types.ReasonWebsiteUnreachable, result.Reason)
}

func TestWebsiteChecker_HeadFallsBackToGet(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := check.NewWebsiteCheckerWithClient(srv.Client())
	result := c.Check(context.Background(), srv.URL)
	assert.True(t, result.Passed)
	assert.Equal(t, []string{http.MethodHead, http.MethodGet}, methods)
}

func TestWebsiteChecker_ConnectionRefused(t *testing.T) {
	// Reserve a port, then close it so the probe has nothing to talk to.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := check.NewWebsiteChecker(check.WebsiteConfig{Timeout: 2 * time.Second})
	result := c.Check(context.Background(), url)
	assert.False(t, result.Passed)
	assert.Equal(t, types.ReasonWebsiteUnreachable, result.Reason)
	assert.Contains(t, result.Details, "request failed")
}

func TestWebsiteChecker_DefaultsToHTTPS(t *testing.T) {
	var probed string
	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			probed = r.URL.String()
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       http.NoBody,
			}, nil
		}),
	}

	c := check.NewWebsiteCheckerWithClient(client)
	result := c.Check(context.Background(), "example.com")
	assert.True(t, result.Passed)
	assert.True(t, strings.HasPrefix(probed, "https://example.com"), "probed %s", probed)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
