// Package transport delivers assembled documents to the collector. One
// document is one POST: no retries, no batching, no buffering. Transport
// problems are logged and absorbed so a failing report can never disturb
// the caller's own control flow.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/klauspost/compress/gzip"

	"github.com/crimson-sun/beacon/internal/payload"
)

// DefaultEndpoint is the collector's item-intake URL.
const DefaultEndpoint = "https://ingest.crimson-sun.io/api/1/item/"

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) { s.client = c }
}

// WithCompression gzips outgoing request bodies.
func WithCompression() Option {
	return func(s *Sender) { s.compress = true }
}

// WithVerbose logs every outgoing payload and parsed acknowledgement.
func WithVerbose() Option {
	return func(s *Sender) { s.verbose = true }
}

// WithLogger replaces the diagnostic logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Sender) { s.log = l }
}

// Sender posts documents to a single fixed endpoint.
type Sender struct {
	endpoint string
	client   *http.Client
	compress bool
	verbose  bool
	log      *slog.Logger
}

// New creates a Sender targeting endpoint (DefaultEndpoint when empty).
// The default client carries no timeout of its own: deadlines are the
// caller's to impose through the request context or WithHTTPClient.
func New(endpoint string, opts ...Option) *Sender {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	s := &Sender{
		endpoint: endpoint,
		client:   cleanhttp.DefaultPooledClient(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send serializes doc and issues exactly one POST. It returns the parsed
// acknowledgement, or nil when the collector could not be reached or its
// response could not be understood. Send never returns an error: failures
// are logged and absorbed. A non-zero ack error code is logged but the ack
// is still returned for inspection.
func (s *Sender) Send(ctx context.Context, doc *payload.Document) *payload.Ack {
	raw, err := json.Marshal(doc)
	if err != nil {
		s.log.Error("beacon: payload serialization failed", "error", err)
		return nil
	}
	if s.verbose {
		s.log.Info("beacon: sending report", "payload", string(raw))
	}

	req, err := s.newRequest(ctx, raw)
	if err != nil {
		s.log.Error("beacon: building report request failed", "error", err)
		return nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("beacon: report delivery failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.log.Error("beacon: reading collector response failed", "error", err)
		return nil
	}

	var ack payload.Ack
	if err := json.Unmarshal(body, &ack); err != nil {
		s.log.Error("beacon: malformed collector response",
			"status", resp.StatusCode, "error", err)
		return nil
	}
	if s.verbose {
		s.log.Info("beacon: collector acknowledged",
			"err", ack.Err, "message", ack.Message)
	}
	if ack.Err != 0 {
		s.log.Error("beacon: collector rejected report",
			"err", ack.Err, "message", ack.Message)
	}
	return &ack
}

func (s *Sender) newRequest(ctx context.Context, raw []byte) (*http.Request, error) {
	body := raw
	if s.compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		body = buf.Bytes()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}
	return req, nil
}
