// Package payload defines the wire document sent to the collector and the
// builder that assembles it from client configuration and per-report context.
package payload

// Notifier identity stamped into every outgoing document.
const (
	NotifierName    = "beacon"
	NotifierVersion = "0.3.1"

	// Platform and language identify the host runtime family to the
	// collector's routing layer.
	Platform = "go-edge"
	Language = "go"
)

// Document is the top-level wire payload, POSTed as a single JSON object.
type Document struct {
	AccessToken string `json:"access_token"`
	Data        Data   `json:"data"`
}

// Data carries one occurrence.
type Data struct {
	Environment string         `json:"environment"`
	Body        Body           `json:"body"`
	Level       string         `json:"level"`
	Timestamp   int64          `json:"timestamp"`
	CodeVersion string         `json:"code_version,omitempty"`
	Platform    string         `json:"platform"`
	Language    string         `json:"language"`
	Server      *Server        `json:"server,omitempty"`
	Request     *Request       `json:"request,omitempty"`
	Person      *Person        `json:"person,omitempty"`
	Custom      map[string]any `json:"custom,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Title       string         `json:"title,omitempty"`
	UUID        string         `json:"uuid,omitempty"`
	Notifier    Notifier       `json:"notifier"`
}

// Body is the report body variant. Exactly one concrete type exists per
// document: TraceBody for error reports, MessageBody for log reports.
type Body interface {
	bodyVariant()
}

// TraceBody is the error-report variant: a parsed stack plus exception details.
type TraceBody struct {
	Trace Trace `json:"trace"`
}

func (TraceBody) bodyVariant() {}

// MessageBody is the log-report variant. The map always contains a "body"
// key with the message text; any extra fields sit alongside it.
type MessageBody struct {
	Message map[string]any `json:"message"`
}

func (MessageBody) bodyVariant() {}

// Trace is a normalized stack with its originating exception.
type Trace struct {
	Frames    []Frame   `json:"frames"`
	Exception Exception `json:"exception"`
}

// Exception describes what was thrown.
type Exception struct {
	Class       string `json:"class"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

// Frame is one call site. Frames are ordered oldest-first: the outermost
// caller leads and the frame where execution originated is last.
type Frame struct {
	Filename string `json:"filename"`
	Lineno   *int   `json:"lineno,omitempty"`
	Colno    *int   `json:"colno,omitempty"`
	Method   string `json:"method,omitempty"`
}

// Server identifies the reporting host, when configured.
type Server struct {
	Host string `json:"host"`
}

// Person is caller-trusted identity context, attached verbatim.
type Person struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Request is a snapshot of the in-flight HTTP request, if any. Headers are
// raw as captured; the builder scrubs them before the document is emitted,
// and Body survives only when the client opted into request bodies.
type Request struct {
	URL         string            `json:"url,omitempty"`
	Method      string            `json:"method,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	QueryString string            `json:"query_string,omitempty"`
	Body        any               `json:"body,omitempty"`
	UserIP      string            `json:"user_ip,omitempty"`
}

// Notifier identifies this client library to the collector.
type Notifier struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Ack is the collector's acknowledgement. Err == 0 signals acceptance.
type Ack struct {
	Err     int     `json:"err"`
	Result  *Result `json:"result,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Result carries the collector-assigned occurrence id on acceptance.
type Result struct {
	UUID string `json:"uuid"`
}
