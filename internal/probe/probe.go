package probe

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"

	"github.com/threadline/artifactd/internal/infrastructure/logging"
)

// Config defines probe limits.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int
}

// DefaultConfig returns production probe limits.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxBodyBytes: 2 * 1024 * 1024,
	}
}

// Request is a user-initiated outbound HTTP call. Probes are deliberate
// network actions by the user, not sandboxed code execution, so they run
// directly from the host.
type Request struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// Response captures everything about the probe outcome. Failures populate
// Error instead of surfacing as Go errors: a 404 is a result, not an
// exception, and so is a connection refusal.
type Response struct {
	Status     int               `json:"status,omitempty"`
	StatusText string            `json:"status_text,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	// ContentType is the effective type: the header when present, else
	// sniffed from the body.
	ContentType string `json:"content_type,omitempty"`
	// Charset is set when a non-UTF8 text body's encoding was detected.
	Charset string `json:"charset,omitempty"`
	// Body holds parsed JSON when the response is JSON, else raw text.
	Body       any    `json:"body,omitempty"`
	Size       int    `json:"size"`
	Truncated  bool   `json:"truncated,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Prober issues direct fetch-style requests with timing.
type Prober struct {
	client *resty.Client
	cfg    Config
	logger *logging.Logger
}

// New creates a prober. The transport comes from retryablehttp for its
// connection pooling defaults, but probes themselves never retry: a probe
// reports exactly what one request did.
func New(cfg Config, logger *logging.Logger) *Prober {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	transport := retryablehttp.NewClient()
	transport.Logger = nil

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "artifactd-probe/1.0").
		SetTransport(transport.HTTPClient.Transport)

	return &Prober{
		client: client,
		cfg:    cfg,
		logger: logger.Named("probe"),
	}
}

// Do executes one probe. It never returns an error; every failure mode is
// folded into the response object.
func (p *Prober) Do(ctx context.Context, req Request) *Response {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = "GET"
	}

	start := time.Now()
	r := p.client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if req.Body != "" {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(method, req.URL)
	out := &Response{DurationMs: time.Since(start).Milliseconds()}

	if err != nil {
		out.Error = err.Error()
		p.logger.Debug("probe failed",
			zap.String("method", method),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		return out
	}

	out.Status = resp.StatusCode()
	out.StatusText = resp.Status()
	out.Headers = flattenHeaders(resp)

	body := resp.Body()
	out.Size = len(body)
	if len(body) > p.cfg.MaxBodyBytes {
		body = body[:p.cfg.MaxBodyBytes]
		out.Truncated = true
	}
	p.decodeBody(out, resp.Header().Get("Content-Type"), body)
	return out
}

// decodeBody fills ContentType, Charset and Body. JSON parses
// opportunistically by content type and falls back to raw text.
func (p *Prober) decodeBody(out *Response, contentType string, body []byte) {
	if len(body) == 0 {
		out.ContentType = contentType
		return
	}

	if contentType == "" {
		contentType = mimetype.Detect(body).String()
	}
	out.ContentType = contentType

	if strings.Contains(contentType, "json") {
		var parsed any
		if err := sonic.Unmarshal(body, &parsed); err == nil {
			out.Body = parsed
			return
		}
		// Declared JSON that does not parse degrades to raw text.
	}

	text := string(body)
	if !utf8.ValidString(text) {
		if res, err := chardet.NewTextDetector().DetectBest(body); err == nil {
			out.Charset = res.Charset
		}
	}
	out.Body = text
}

func flattenHeaders(resp *resty.Response) map[string]string {
	headers := make(map[string]string, len(resp.Header()))
	for k, v := range resp.Header() {
		headers[k] = strings.Join(v, ", ")
	}
	return headers
}
