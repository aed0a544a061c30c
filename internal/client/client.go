package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/telenode/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RequestsPerSecond of zero means unlimited.
	RequestsPerSecond float64
	// Retries is how often a refused connection is retried, for instance
	// while a node is still starting.
	Retries int
}

// retryRefused retries only connections the node refused. Such requests
// never reached it, so retrying is safe for every method.
func retryRefused(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil && errors.Is(err, syscall.ECONNREFUSED), nil
}

// Client is safe for concurrent use.
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker
	limiter *rate.Limiter
}

// APIError is a non-2xx answer from the node.
type APIError struct {
	Status  int        `json:"-"`
	Code    types.Code `json:"code"`
	Message string     `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap exposes the dispatcher error so errors.Is works against the
// types sentinels.
func (e *APIError) Unwrap() error {
	return types.Errorf(e.Code, "%s", e.Message)
}

// InvokeResult is the answer to Invoke.
type InvokeResult struct {
	Command string `json:"command"`
	Result  any    `json:"result"`
}

// New creates a client for the node at cfg.BaseURL.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.Retries
	retry.RetryWaitMin = 100 * time.Millisecond
	retry.RetryWaitMax = 2 * time.Second
	retry.CheckRetry = retryRefused
	retry.Logger = nil

	r := resty.New().
		SetTransport(&retryablehttp.RoundTripper{Client: retry}).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "telenode-client/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if cfg.Token != "" {
		r.SetAuthToken(cfg.Token)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		resty:   r,
		limiter: rate.NewLimiter(limit, 1),
		breaker: resilience.New("node-api", resilience.Settings{
			Threshold: 3,
			Cooldown:  5 * time.Second,
			IsFailure: func(err error) bool {
				var apiErr *APIError
				if errors.As(err, &apiErr) {
					return apiErr.Status >= http.StatusInternalServerError && apiErr.Code != types.CodeConstructionFailed
				}
				return true
			},
		}),
	}
}

// Breaker exposes the breaker state for diagnostics.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// Health checks that the node answers.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// Invoke runs a command given as words plus options.
func (c *Client) Invoke(ctx context.Context, command string, args []string, opts map[string]any) (InvokeResult, error) {
	body := map[string]any{"command": command, "arguments": args, "options": opts}
	if deadline, ok := ctx.Deadline(); ok {
		body["timeout"] = time.Until(deadline).String()
	}
	var out InvokeResult
	err := c.do(ctx, http.MethodPost, "/invoke", body, &out)
	return out, err
}

// Status returns the encoded status document.
func (c *Client) Status(ctx context.Context, format string) (string, error) {
	return resilience.Do(ctx, c.breaker, func(ctx context.Context) (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		resp, err := c.resty.R().
			SetContext(ctx).
			SetQueryParam("format", format).
			SetError(&APIError{}).
			Get("/status")
		if err != nil {
			return "", err
		}
		if err := apiError(resp); err != nil {
			return "", err
		}
		return resp.String(), nil
	})
}

// Components lists registered components.
func (c *Client) Components(ctx context.Context) ([]types.ComponentInfo, error) {
	var out struct {
		Components []types.ComponentInfo `json:"components"`
	}
	err := c.do(ctx, http.MethodGet, "/components", nil, &out)
	return out.Components, err
}

// Kill terminates the component with label.
func (c *Client) Kill(ctx context.Context, label string) error {
	return c.do(ctx, http.MethodDelete, "/components/"+label, nil, nil)
}

// Send delivers message to the component with label and returns its reply.
func (c *Client) Send(ctx context.Context, label, message string) (any, error) {
	var out struct {
		Result any `json:"result"`
	}
	err := c.do(ctx, http.MethodPost, "/components/"+label+"/send", map[string]string{"message": message}, &out)
	return out.Result, err
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	_, err := resilience.Do(ctx, c.breaker, func(ctx context.Context) (struct{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return struct{}{}, err
		}
		req := c.resty.R().SetContext(ctx).SetError(&APIError{})
		if body != nil {
			req.SetBody(body)
		}
		if result != nil {
			req.SetResult(result)
		}
		resp, err := req.Execute(method, path)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, apiError(resp)
	})
	return err
}

func apiError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr.Message == "" {
		apiErr = &APIError{Code: types.CodeUnspecified, Message: resp.Status()}
	}
	apiErr.Status = resp.StatusCode()
	if apiErr.Code == "" {
		apiErr.Code = types.CodeUnspecified
	}
	return apiErr
}
