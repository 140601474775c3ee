// Authenticated raw HTTP access to the Web API
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/opium/internal/shared"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.spotify.com/v1"

// requester builds and sends rate limited, bearer-authenticated GET requests.
type requester struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

func newRequester(baseURL string, tokens TokenProvider, client *http.Client, rps float64, logger *log.Logger) requester {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if rps <= 0 {
		rps = 5.0
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return requester{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// buildURL joins path and query onto the base URL.
func (r requester) buildURL(path string, query url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u, err := url.Parse(r.baseURL + path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrInvalidURL, u.String())
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// get sends an authenticated GET. The caller owns the response body.
func (r requester) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	if r.tokens == nil {
		return nil, shared.ErrNotAuthenticated
	}

	fullURL, err := r.buildURL(path, query)
	if err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := r.tokens.ValidToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	r.logger.Debug("api request", "url", fullURL)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	return resp, nil
}

// APIService provides raw authenticated access to arbitrary Web API paths.
type APIService struct {
	requester
}

// NewAPIService creates a new raw API service.
func NewAPIService(baseURL string, tokens TokenProvider, client *http.Client) *APIService {
	return &APIService{requester: newRequester(baseURL, tokens, client, 0, nil)}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Get performs a GET request to the specified path and returns the raw response.
//
// Non-2xx statuses are not treated as errors.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	var query url.Values
	if i := strings.IndexByte(path, '?'); i >= 0 {
		parsed, err := url.ParseQuery(path[i+1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidURL, err)
		}
		path, query = path[:i], parsed
	}

	resp, err := a.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrTransport, err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}
