package beacon

import (
	"errors"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/crimson-sun/beacon/internal/payload"
	"github.com/crimson-sun/beacon/internal/trace"
)

// Person identifies the affected user. It is caller-trusted identity data
// and is attached to reports verbatim, not scrubbed.
type Person struct {
	ID       string
	Username string
	Email    string
}

func (p Person) wire() payload.Person {
	return payload.Person{ID: p.ID, Username: p.Username, Email: p.Email}
}

// Ack is the collector's acknowledgement of one report. A nil *Ack means
// the collector could not be reached or delivery ran in the background.
type Ack struct {
	Err     int    // 0 on acceptance
	UUID    string // collector-assigned occurrence id, when accepted
	Message string // collector-supplied message, when rejected
}

func fromWireAck(a *payload.Ack) *Ack {
	if a == nil {
		return nil
	}
	out := &Ack{Err: a.Err, Message: a.Message}
	if a.Result != nil {
		out.UUID = a.Result.UUID
	}
	return out
}

// Stacker is implemented by errors that carry a raw textual stack trace,
// for example a failure forwarded from an upstream runtime. The text is
// parsed into structured frames; errors without one get a placeholder
// frame instead.
type Stacker interface {
	Stack() string
}

// Classer overrides the exception class name that would otherwise be
// derived from the error's Go type.
type Classer interface {
	Class() string
}

// NewError builds an error carrying an explicit class name and raw stack
// text. Use it to re-report failures received from elsewhere.
func NewError(class, message, stack string) error {
	return &tracedError{class: class, message: message, stack: stack}
}

type tracedError struct {
	class   string
	message string
	stack   string
}

func (e *tracedError) Error() string { return e.message }
func (e *tracedError) Class() string { return e.class }
func (e *tracedError) Stack() string { return e.stack }

// report accumulates per-call context before the document is built.
type report struct {
	custom      map[string]any
	person      *payload.Person
	request     *payload.Request
	body        any
	fingerprint string
	title       string
	uuid        string
	description string
}

// ReportOption attaches context to a single report.
type ReportOption func(*report)

// WithCustom attaches arbitrary key-value data. It is scrubbed and merged
// over the client's default custom data.
func WithCustom(m map[string]any) ReportOption {
	return func(rep *report) { rep.custom = m }
}

// WithPerson attaches identity context to this report only, overriding
// any client-bound person.
func WithPerson(p Person) ReportOption {
	return func(rep *report) {
		wp := p.wire()
		rep.person = &wp
	}
}

// WithRequest snapshots r into the report's request context: URL, method,
// headers (scrubbed before emission), query string, and client IP. The
// request body is never read; supply one with WithRequestBody.
func WithRequest(r *http.Request) ReportOption {
	return func(rep *report) { rep.request = snapshotRequest(r) }
}

// WithRequestBody attaches a request body to the report's request
// context. It is emitted (scrubbed) only when the client was constructed
// with WithRequestBodies; otherwise it is omitted entirely.
func WithRequestBody(body any) ReportOption {
	return func(rep *report) { rep.body = body }
}

// WithFingerprint overrides the collector's grouping key.
func WithFingerprint(fp string) ReportOption {
	return func(rep *report) { rep.fingerprint = fp }
}

// WithTitle overrides the report title.
func WithTitle(title string) ReportOption {
	return func(rep *report) { rep.title = title }
}

// WithUUID sets the occurrence id. When absent one is generated.
func WithUUID(id string) ReportOption {
	return func(rep *report) { rep.uuid = id }
}

// WithDescription attaches a longer human-readable description to an
// error report's exception block.
func WithDescription(desc string) ReportOption {
	return func(rep *report) { rep.description = desc }
}

func newReport(person *payload.Person, opts []ReportOption) *report {
	rep := &report{person: person}
	for _, opt := range opts {
		opt(rep)
	}
	return rep
}

func (rep *report) wire() *payload.Context {
	if rep.request != nil && rep.body != nil {
		rep.request.Body = rep.body
	}
	return &payload.Context{
		Person:      rep.person,
		Request:     rep.request,
		Custom:      rep.custom,
		Fingerprint: rep.fingerprint,
		Title:       rep.title,
		UUID:        rep.uuid,
	}
}

// errorClass derives the exception class name: an explicit Class() when
// the error provides one, otherwise the error's Go type name, falling
// back to "Error" for anonymous and stdlib string errors.
func errorClass(err error) string {
	if err == nil {
		return "Error"
	}
	var c Classer
	if errors.As(err, &c) {
		return c.Class()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" || name == "errorString" {
		return "Error"
	}
	return name
}

func errorStack(err error) string {
	var s Stacker
	if errors.As(err, &s) {
		return s.Stack()
	}
	return ""
}

// Origin returns the file and line of the frame nearest err's origin.
// ok is false when the error's stack text yields no real location.
func Origin(err error) (file string, line int, ok bool) {
	f, ok := trace.Locate(errorClass(err), errorStack(err))
	if !ok {
		return "", 0, false
	}
	if f.Lineno != nil {
		line = *f.Lineno
	}
	return f.Filename, line, true
}

// snapshotRequest captures the report-relevant parts of an HTTP request.
// Headers are captured raw; scrubbing happens when the document is built.
func snapshotRequest(r *http.Request) *payload.Request {
	if r == nil {
		return nil
	}
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		headers[name] = strings.Join(values, "; ")
	}
	return &payload.Request{
		URL:         requestURL(r),
		Method:      r.Method,
		Headers:     headers,
		QueryString: r.URL.RawQuery,
		UserIP:      clientIP(r),
	}
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fp := r.Header.Get("X-Forwarded-Proto"); fp != "" {
		scheme = fp
	}
	return scheme + "://" + r.Host + r.URL.Path
}

// clientIP prefers the forwarding headers set by edge proxies over the
// socket peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}
	if rip := r.Header.Get("X-Real-Ip"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
