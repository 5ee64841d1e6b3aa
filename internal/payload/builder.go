package payload

import (
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/beacon/internal/scrub"
)

// Builder assembles wire documents from immutable client configuration.
// All fields are fixed at construction; a Builder is safe for concurrent
// use by any number of in-flight reports.
type Builder struct {
	token              string
	environment        string
	codeVersion        string
	host               string
	includeRequestBody bool
	defaults           map[string]any
	scrubFields        []string // built-ins plus configured extras
	extraFields        []string // configured extras only, for header matching
}

// BuilderConfig is the client-side state stamped into every document.
type BuilderConfig struct {
	Token              string
	Environment        string
	CodeVersion        string
	Host               string
	IncludeRequestBody bool
	Defaults           map[string]any
	ScrubFields        []string // extra fields beyond the built-ins
}

// Context is the optional per-report context supplied by the caller.
type Context struct {
	Person      *Person
	Request     *Request
	Custom      map[string]any
	Fingerprint string
	Title       string
	UUID        string
}

// NewBuilder creates a Builder. The environment defaults to "production"
// when unset.
func NewBuilder(cfg BuilderConfig) *Builder {
	env := cfg.Environment
	if env == "" {
		env = "production"
	}
	return &Builder{
		token:              cfg.Token,
		environment:        env,
		codeVersion:        cfg.CodeVersion,
		host:               cfg.Host,
		includeRequestBody: cfg.IncludeRequestBody,
		defaults:           cfg.Defaults,
		scrubFields:        scrub.FieldSet(cfg.ScrubFields),
		extraFields:        cfg.ScrubFields,
	}
}

// BuildTrace produces an error-report document from a normalized stack.
func (b *Builder) BuildTrace(level string, exc Exception, frames []Frame, rctx *Context) *Document {
	doc := b.base(level, rctx)
	doc.Data.Body = TraceBody{Trace: Trace{Frames: frames, Exception: exc}}
	return doc
}

// BuildMessage produces a log-report document. extra fields sit alongside
// the message body and are scrubbed like any other caller data.
func (b *Builder) BuildMessage(level, message string, extra map[string]any, rctx *Context) *Document {
	doc := b.base(level, rctx)
	body := map[string]any{"body": message}
	if scrubbed, ok := scrub.Values(extra, b.scrubFields).(map[string]any); ok {
		for k, v := range scrubbed {
			if k == "body" {
				continue
			}
			body[k] = v
		}
	}
	doc.Data.Body = MessageBody{Message: body}
	return doc
}

// base stamps everything common to both body variants.
func (b *Builder) base(level string, rctx *Context) *Document {
	data := Data{
		Environment: b.environment,
		Level:       level,
		Timestamp:   time.Now().Unix(),
		CodeVersion: b.codeVersion,
		Platform:    Platform,
		Language:    Language,
		Custom:      b.mergeCustom(rctx),
		Notifier:    Notifier{Name: NotifierName, Version: NotifierVersion},
	}
	if b.host != "" {
		data.Server = &Server{Host: b.host}
	}
	if rctx != nil {
		data.Person = rctx.Person
		data.Request = b.buildRequest(rctx.Request)
		data.Fingerprint = rctx.Fingerprint
		data.Title = rctx.Title
		data.UUID = rctx.UUID
	}
	if data.UUID == "" {
		data.UUID = uuid.NewString()
	}
	return &Document{AccessToken: b.token, Data: data}
}

// mergeCustom layers the per-call custom data over the client defaults,
// scrubbing each side. Later wins on key collision.
func (b *Builder) mergeCustom(rctx *Context) map[string]any {
	var call map[string]any
	if rctx != nil {
		call = rctx.Custom
	}
	if b.defaults == nil && call == nil {
		return nil
	}

	merged := make(map[string]any)
	if m, ok := scrub.Values(b.defaults, b.scrubFields).(map[string]any); ok {
		for k, v := range m {
			merged[k] = v
		}
	}
	if m, ok := scrub.Values(call, b.scrubFields).(map[string]any); ok {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// buildRequest maps the captured request snapshot into the wire block.
// Headers are scrubbed; the body survives only when the client opted in,
// and is scrubbed when it does.
func (b *Builder) buildRequest(r *Request) *Request {
	if r == nil {
		return nil
	}
	out := &Request{
		URL:         r.URL,
		Method:      r.Method,
		Headers:     scrub.Headers(r.Headers, b.extraFields),
		QueryString: r.QueryString,
		UserIP:      r.UserIP,
	}
	if b.includeRequestBody && r.Body != nil {
		out.Body = scrub.Values(r.Body, b.scrubFields)
	}
	return out
}
