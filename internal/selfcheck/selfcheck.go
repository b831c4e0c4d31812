// Package selfcheck probes a running API for its security behavior:
// response headers, authentication, input validation and rate limiting.
package selfcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultRateLimitProbes is enough requests to exceed the default limit of 60 per window
const DefaultRateLimitProbes = 70

var requiredHeaders = []string{
	"X-Content-Type-Options",
	"X-Frame-Options",
	"X-XSS-Protection",
	"Referrer-Policy",
}

// Options configures a self-check run. Email and Password, when set, must
// belong to an admin; they unlock the input validation probe.
type Options struct {
	BaseURL         string
	Full            bool
	SkipRateLimit   bool
	Email           string
	Password        string
	RateLimitProbes int
	Client          *http.Client
}

// Result is the outcome of one probe
type Result struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Skipped bool   `json:"skipped"`
	Detail  string `json:"detail,omitempty"`
}

// Report collects every probe result
type Report struct {
	Results []Result `json:"results"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
}

// OK reports whether no probe failed
func (r *Report) OK() bool {
	return r.Failed == 0
}

// errSkip marks a probe that could not run with the given options
type errSkip string

func (e errSkip) Error() string { return string(e) }

type probe struct {
	name string
	run  func(ctx context.Context) error
}

type checker struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
	token  string
}

// Run executes the probes against opts.BaseURL
func Run(ctx context.Context, opts Options, logger *zap.Logger) *Report {
	c := &checker{opts: opts, client: opts.Client, logger: logger}
	if c.client == nil {
		c.client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.opts.RateLimitProbes <= 0 {
		c.opts.RateLimitProbes = DefaultRateLimitProbes
	}
	c.opts.BaseURL = strings.TrimRight(c.opts.BaseURL, "/")

	probes := []probe{
		{"security_headers", c.securityHeaders},
		{"authentication_required", c.authenticationRequired},
		{"invalid_token_rejected", c.invalidTokenRejected},
		{"input_validation", c.inputValidation},
	}
	if opts.Full {
		probes = append(probes,
			probe{"unknown_route", c.unknownRoute},
			probe{"malformed_body", c.malformedBody},
		)
	}
	// rate limiting runs last so its exhausted budget does not fail the others
	if !opts.SkipRateLimit {
		probes = append(probes, probe{"rate_limiting", c.rateLimiting})
	}

	report := &Report{Results: make([]Result, 0, len(probes))}
	for _, p := range probes {
		res := Result{Name: p.name}
		err := p.run(ctx)
		switch skip, ok := err.(errSkip); {
		case err == nil:
			res.Passed = true
			report.Passed++
		case ok:
			res.Skipped = true
			res.Detail = string(skip)
			report.Skipped++
		default:
			res.Detail = err.Error()
			report.Failed++
		}
		logger.Debug("Self-check probe finished",
			zap.String("probe", p.name),
			zap.Bool("passed", res.Passed),
			zap.String("detail", res.Detail),
		)
		report.Results = append(report.Results, res)
	}

	return report
}

func (c *checker) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *checker) status(ctx context.Context, method, path, token string, body []byte) (int, http.Header, error) {
	resp, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, resp.Header, nil
}

func (c *checker) securityHeaders(ctx context.Context) error {
	_, headers, err := c.status(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return err
	}
	var missing []string
	for _, h := range requiredHeaders {
		if headers.Get(h) == "" {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing security headers: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *checker) authenticationRequired(ctx context.Context) error {
	for _, path := range []string{"/api/products", "/api/orders", "/api/dashboard"} {
		code, _, err := c.status(ctx, http.MethodGet, path, "", nil)
		if err != nil {
			return err
		}
		if code != http.StatusUnauthorized {
			return fmt.Errorf("GET %s without a token returned %d", path, code)
		}
	}
	return nil
}

func (c *checker) invalidTokenRejected(ctx context.Context) error {
	code, _, err := c.status(ctx, http.MethodGet, "/api/products", "not.a.token", nil)
	if err != nil {
		return err
	}
	if code != http.StatusUnauthorized {
		return fmt.Errorf("forged token returned %d", code)
	}
	return nil
}

func (c *checker) login(ctx context.Context) (string, error) {
	if c.token != "" {
		return c.token, nil
	}
	if c.opts.Email == "" || c.opts.Password == "" {
		return "", errSkip("no admin credentials given")
	}

	body, _ := json.Marshal(map[string]string{"email": c.opts.Email, "password": c.opts.Password})
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/token", "", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	c.token = payload.AccessToken
	return c.token, nil
}

func (c *checker) inputValidation(ctx context.Context) error {
	token, err := c.login(ctx)
	if err != nil {
		return err
	}

	invalid := []map[string]interface{}{
		{"name": "", "price": "100", "stock_quantity": 10},
		{"name": "Probe", "price": "-100", "stock_quantity": 10},
		{"name": "Probe", "price": "100", "stock_quantity": -10},
		{"name": strings.Repeat("A", 300), "price": "100", "stock_quantity": 10},
	}
	for _, product := range invalid {
		body, _ := json.Marshal(product)
		code, _, err := c.status(ctx, http.MethodPost, "/api/products", token, body)
		if err != nil {
			return err
		}
		if code == http.StatusForbidden {
			return errSkip("credentials are not an admin's")
		}
		if code != http.StatusBadRequest {
			return fmt.Errorf("invalid product %v returned %d", product, code)
		}
	}
	return nil
}

func (c *checker) unknownRoute(ctx context.Context) error {
	code, headers, err := c.status(ctx, http.MethodGet, "/api/does-not-exist", "", nil)
	if err != nil {
		return err
	}
	if code != http.StatusNotFound && code != http.StatusUnauthorized {
		return fmt.Errorf("unknown route returned %d", code)
	}
	if headers.Get("X-Content-Type-Options") == "" {
		return fmt.Errorf("unknown route response lacks security headers")
	}
	return nil
}

func (c *checker) malformedBody(ctx context.Context) error {
	code, _, err := c.status(ctx, http.MethodPost, "/api/auth/token", "", []byte(`{"email":`))
	if err != nil {
		return err
	}
	if code != http.StatusBadRequest {
		return fmt.Errorf("malformed login body returned %d", code)
	}
	return nil
}

func (c *checker) rateLimiting(ctx context.Context) error {
	for i := 0; i < c.opts.RateLimitProbes; i++ {
		code, headers, err := c.status(ctx, http.MethodGet, "/api/products", "", nil)
		if err != nil {
			return err
		}
		if code == http.StatusTooManyRequests {
			if headers.Get("Retry-After") == "" {
				return fmt.Errorf("429 response lacks Retry-After")
			}
			return nil
		}
	}
	return fmt.Errorf("no request was limited after %d attempts", c.opts.RateLimitProbes)
}

// WriteText renders the report for terminals
func (r *Report) WriteText(w io.Writer) error {
	for _, res := range r.Results {
		mark := "FAIL"
		switch {
		case res.Passed:
			mark = "PASS"
		case res.Skipped:
			mark = "SKIP"
		}
		line := fmt.Sprintf("[%s] %s", mark, res.Name)
		if res.Detail != "" {
			line += ": " + res.Detail
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "passed: %d  failed: %d  skipped: %d\n", r.Passed, r.Failed, r.Skipped)
	return err
}
