// Package httpapi talks to the design backend over its JSON HTTP API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/manash/designgen/internal/provider"
	"github.com/manash/designgen/internal/security"
	"github.com/manash/designgen/pkg/models"
)

const (
	defaultBaseURL = "http://localhost:3001"
	defaultTimeout = 30 * time.Second
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	verbose    bool
	logOut     io.Writer
}

func New(cfg *provider.Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if err := security.ValidateBaseURL(baseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidBaseURL, err)
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		verbose: cfg.Verbose,
		logOut:  os.Stderr,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate rejects an invalid prompt before any request is sent.
func (c *Client) Generate(ctx context.Context, prompt string) (*models.GeneratedDesign, error) {
	if err := models.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodPost, "/generate", &models.GenerateRequest{Prompt: strings.TrimSpace(prompt)})
	if err != nil {
		return nil, err
	}

	generated, err := models.DecodeDesign(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	return generated, nil
}

func (c *Client) Evaluate(ctx context.Context, req *models.EvaluateRequest) (*models.EvaluateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodPost, "/evaluate", req)
	if err != nil {
		return nil, err
	}

	var resp models.EvaluateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	return &resp, nil
}

func (c *Client) Iterate(ctx context.Context, req *models.IterateRequest) (*models.Design, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, http.MethodPost, "/iterate", req)
	if err != nil {
		return nil, err
	}

	generated, err := models.DecodeDesign(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	return generated.Design, nil
}

func (c *Client) Assets(ctx context.Context) ([]models.Asset, error) {
	body, err := c.do(ctx, http.MethodGet, "/stub/generate", nil)
	if err != nil {
		return nil, err
	}

	var resp models.AssetsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	return resp.Assets, nil
}

func (c *Client) Status(ctx context.Context, designID int64) (*models.StatusResponse, error) {
	body, err := c.do(ctx, http.MethodGet, "/status/"+strconv.FormatInt(designID, 10), nil)
	if err != nil {
		return nil, err
	}

	var resp models.StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err)
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var reqBody []byte
	if in != nil {
		var err error
		reqBody, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logRequest(method, url, httpReq.Header, reqBody)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", provider.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", provider.ErrTransport, err)
	}

	c.logResponse(resp.StatusCode, resp.Header, body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &provider.StatusError{Code: resp.StatusCode}
		var apiErr models.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil {
			statusErr.Message = apiErr.Error
		}
		return nil, statusErr
	}

	return body, nil
}

func (c *Client) logRequest(method, url string, headers http.Header, body []byte) {
	if !c.verbose {
		return
	}

	fmt.Fprintln(c.logOut, "--- REQUEST ---")
	fmt.Fprintf(c.logOut, "%s %s\n", method, url)
	fmt.Fprintln(c.logOut, "Headers:")
	for key, values := range headers {
		for _, value := range values {
			if strings.ToLower(key) == "authorization" {
				value = "[REDACTED]"
			}
			fmt.Fprintf(c.logOut, "  %s: %s\n", key, value)
		}
	}
	writeBody(c.logOut, body)
	fmt.Fprintln(c.logOut, "---------------")
}

func (c *Client) logResponse(statusCode int, headers http.Header, body []byte) {
	if !c.verbose {
		return
	}

	fmt.Fprintln(c.logOut, "--- RESPONSE ---")
	fmt.Fprintf(c.logOut, "Status: %d\n", statusCode)
	fmt.Fprintln(c.logOut, "Headers:")
	for key, values := range headers {
		for _, value := range values {
			fmt.Fprintf(c.logOut, "  %s: %s\n", key, value)
		}
	}
	writeBody(c.logOut, body)
	fmt.Fprintln(c.logOut, "----------------")
}

func writeBody(w io.Writer, body []byte) {
	if len(body) == 0 {
		return
	}
	fmt.Fprintln(w, "Body:")
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "  ", "  "); err == nil {
		fmt.Fprintf(w, "  %s\n", prettyJSON.String())
	} else {
		fmt.Fprintf(w, "  %s\n", string(body))
	}
}
