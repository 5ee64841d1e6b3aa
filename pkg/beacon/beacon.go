package beacon

import (
	"context"
	"errors"

	"github.com/crimson-sun/beacon/internal/payload"
	"github.com/crimson-sun/beacon/internal/trace"
	"github.com/crimson-sun/beacon/internal/transport"
)

// Level is the severity attached to a report. Levels are categorical
// routing labels on the collector; they carry no numeric ordering.
type Level string

const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// ErrMissingToken is returned by New when no access token is supplied.
// It is the only error a client ever surfaces: every failure inside a
// reporting call is absorbed and logged instead.
var ErrMissingToken = errors.New("beacon: access token is required")

// Client reports errors and log messages to the collector. All
// configuration is fixed at construction, so one Client is safe to share
// across any number of concurrent request handlers.
type Client struct {
	opts    options
	builder *payload.Builder
	sender  *transport.Sender
	person  *payload.Person
}

// New creates a Client. token must be non-empty; every other setting has
// a default (see the With* options).
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	builder := payload.NewBuilder(payload.BuilderConfig{
		Token:              token,
		Environment:        o.environment,
		CodeVersion:        o.codeVersion,
		Host:               o.host,
		IncludeRequestBody: o.includeRequestBody,
		Defaults:           o.defaults,
		ScrubFields:        o.scrubFields,
	})

	var sopts []transport.Option
	if o.httpClient != nil {
		sopts = append(sopts, transport.WithHTTPClient(o.httpClient))
	}
	if o.logger != nil {
		sopts = append(sopts, transport.WithLogger(o.logger))
	}
	if o.compress {
		sopts = append(sopts, transport.WithCompression())
	}
	if o.verbose {
		sopts = append(sopts, transport.WithVerbose())
	}

	return &Client{
		opts:    o,
		builder: builder,
		sender:  transport.New(o.endpoint, sopts...),
	}, nil
}

// WithPerson derives a new Client that attaches p to every report. The
// derived client is an independent value copy sharing no mutable state
// with its parent; the parent is unchanged.
func (c *Client) WithPerson(p Person) *Client {
	derived := *c
	wp := p.wire()
	derived.person = &wp
	return &derived
}

// Critical reports err at critical severity.
func (c *Client) Critical(ctx context.Context, err error, opts ...ReportOption) *Ack {
	return c.errorReport(ctx, LevelCritical, err, opts)
}

// Error reports err at error severity.
func (c *Client) Error(ctx context.Context, err error, opts ...ReportOption) *Ack {
	return c.errorReport(ctx, LevelError, err, opts)
}

// Warning reports err at warning severity.
func (c *Client) Warning(ctx context.Context, err error, opts ...ReportOption) *Ack {
	return c.errorReport(ctx, LevelWarning, err, opts)
}

// Message reports a free-text log message. extra fields are attached
// alongside the message body and scrubbed like any other caller data.
func (c *Client) Message(ctx context.Context, level Level, msg string, extra map[string]any, opts ...ReportOption) *Ack {
	rep := newReport(c.person, opts)
	doc := c.builder.BuildMessage(string(level), msg, extra, rep.wire())
	return c.deliver(ctx, doc)
}

// Info reports msg at info severity.
func (c *Client) Info(ctx context.Context, msg string, extra map[string]any) *Ack {
	return c.Message(ctx, LevelInfo, msg, extra)
}

// Debug reports msg at debug severity.
func (c *Client) Debug(ctx context.Context, msg string, extra map[string]any) *Ack {
	return c.Message(ctx, LevelDebug, msg, extra)
}

func (c *Client) errorReport(ctx context.Context, level Level, err error, opts []ReportOption) *Ack {
	rep := newReport(c.person, opts)

	class := errorClass(err)
	message := "<nil>"
	if err != nil {
		message = err.Error()
	}
	exc := payload.Exception{Class: class, Message: message, Description: rep.description}
	frames := trace.Parse(class, errorStack(err))

	doc := c.builder.BuildTrace(string(level), exc, frames, rep.wire())
	return c.deliver(ctx, doc)
}

// deliver hands the document to the transport. With a Scheduler
// configured, delivery completes in the background and the reporting call
// returns immediately with no acknowledgement; otherwise it is awaited.
func (c *Client) deliver(ctx context.Context, doc *payload.Document) *Ack {
	if c.opts.scheduler != nil {
		bg := context.WithoutCancel(ctx)
		c.opts.scheduler.Schedule(func() {
			c.sender.Send(bg, doc)
		})
		return nil
	}
	return fromWireAck(c.sender.Send(ctx, doc))
}
