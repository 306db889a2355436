package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"followscout/pkg/logger"
)

// Credential is what one request needs to act as a single logical identity:
// a session secret and the optional proxy its traffic egresses through.
type Credential struct {
	SessionSecret string
	Proxy         string
}

// Client fetches follow lists from Instagram's web API. It keeps one
// http.Client per proxy so identities with different egress points never
// share a transport.
type Client struct {
	timeout       time.Duration
	maxFollowSize int
	headers       map[string]string
	baseURL       string
	logger        logger.Logger

	mu      sync.Mutex
	clients map[string]*http.Client // keyed by proxy URL, "" = direct
}

// NewClient creates a new Instagram follow-list client
func NewClient(timeout time.Duration, maxFollowSize int, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		timeout:       timeout,
		maxFollowSize: maxFollowSize,
		headers: map[string]string{
			"User-Agent":       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      "936619743392459",
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          BaseURL + "/",
		},
		baseURL: BaseURL,
		logger:  log,
		clients: make(map[string]*http.Client),
	}
}

// SetBaseURL overrides the API base URL (used by tests)
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// SetHeader sets a custom header for all requests
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// FetchFollowSet returns the set of handles the target currently follows,
// paging through the follow list with the given credential. Failures are
// returned as *Error values carrying the provider's structural signal.
func (c *Client) FetchFollowSet(ctx context.Context, target string, cred Credential) ([]string, error) {
	userID, expected, err := c.resolveUser(ctx, target, cred)
	if err != nil {
		return nil, err
	}

	follows := make([]string, 0, expected)
	maxID := ""

	for {
		pageURL := FollowingURL(c.baseURL, userID, maxID, DefaultPageSize)

		var page FollowingResponse
		if err := c.getJSON(ctx, pageURL, cred, &page); err != nil {
			return nil, err
		}

		for _, u := range page.Users {
			follows = append(follows, u.Username)
		}

		if c.maxFollowSize > 0 && len(follows) >= c.maxFollowSize {
			c.logger.WarnWithFields("follow list truncated at cap", map[string]interface{}{
				"target": target,
				"cap":    c.maxFollowSize,
			})
			follows = follows[:c.maxFollowSize]
			break
		}

		if page.NextMaxID == "" || len(page.Users) == 0 {
			break
		}
		maxID = page.NextMaxID
	}

	// A user who follows people but came back empty is a known provider
	// glitch, not a real follow-list wipe. Surface it structurally.
	if len(follows) == 0 && expected > 0 {
		return nil, &Error{
			Type:    ErrorTypeEmptyResult,
			Message: fmt.Sprintf("empty follow list for %s, profile reports %d follows", target, expected),
			Code:    http.StatusOK,
		}
	}

	c.logger.DebugWithFields("follow set fetched", map[string]interface{}{
		"target": target,
		"count":  len(follows),
	})

	return follows, nil
}

// resolveUser resolves a target handle to its numeric user ID and the
// follow count the profile reports.
func (c *Client) resolveUser(ctx context.Context, target string, cred Credential) (string, int, error) {
	var profile ProfileResponse
	if err := c.getJSON(ctx, ProfileURL(c.baseURL, target), cred, &profile); err != nil {
		return "", 0, err
	}

	if profile.RequiresToLogin {
		return "", 0, &Error{
			Type:    ErrorTypeAuth,
			Message: "profile requires authentication",
			Code:    http.StatusUnauthorized,
		}
	}

	if profile.Data.User.ID == "" {
		return "", 0, &Error{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("profile %s not found", target),
			Code:    http.StatusNotFound,
		}
	}

	return profile.Data.User.ID, profile.Data.User.EdgeFollowing.Count, nil
}

// getJSON performs a GET request with the credential's session and proxy
// and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, requestURL string, cred Credential, target interface{}) error {
	httpClient, err := c.clientFor(cred.Proxy)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Cookie", fmt.Sprintf("sessionid=%s", cred.SessionSecret))

	start := time.Now()
	resp, err := httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      requestURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      requestURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := c.checkResponseStatus(resp.StatusCode, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          requestURL,
			"status":       resp.StatusCode,
			"body_preview": bodyPreview,
		})
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus maps an HTTP response onto a raw typed error using
// the status code and the provider message in the body.
func (c *Client) checkResponseStatus(statusCode int, body []byte) error {
	if statusCode == http.StatusOK {
		return nil
	}

	message := providerMessage(body)

	switch {
	case strings.Contains(message, "challenge") || strings.Contains(message, "checkpoint"):
		return &Error{
			Type:    ErrorTypeChallenge,
			Message: message,
			Code:    statusCode,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden ||
		strings.Contains(message, "login_required"):
		return &Error{
			Type:    ErrorTypeAuth,
			Message: "authentication required",
			Code:    statusCode,
		}
	case statusCode == http.StatusTooManyRequests || strings.Contains(message, "wait a few minutes"):
		return &Error{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    statusCode,
		}
	case statusCode == http.StatusNotFound:
		return &Error{
			Type:    ErrorTypeNotFound,
			Message: "resource not found",
			Code:    statusCode,
		}
	case statusCode >= 500:
		return &Error{
			Type:    ErrorTypeServerError,
			Message: "server error",
			Code:    statusCode,
		}
	default:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", statusCode),
			Code:    statusCode,
		}
	}
}

// providerMessage extracts the "message" field Instagram error bodies carry
func providerMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(payload.Message)
}

// clientFor returns the http.Client for the given proxy, creating it on
// first use.
func (c *Client) clientFor(proxyURL string) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[proxyURL]; ok {
		return client, nil
	}

	client := &http.Client{Timeout: c.timeout}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, &Error{
				Type:    ErrorTypeUnknown,
				Message: fmt.Sprintf("invalid proxy URL: %v", err),
				Code:    0,
			}
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
	}

	c.clients[proxyURL] = client
	return client, nil
}
