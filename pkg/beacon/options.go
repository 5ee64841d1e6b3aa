package beacon

import (
	"log/slog"
	"net/http"
)

type options struct {
	environment        string
	codeVersion        string
	host               string
	endpoint           string
	scrubFields        []string
	includeRequestBody bool
	defaults           map[string]any
	verbose            bool
	compress           bool
	httpClient         *http.Client
	logger             *slog.Logger
	scheduler          Scheduler
	rethrow            bool
	errorResponder     ErrorResponder
}

// Option configures a Client at construction time.
type Option func(*options)

// ErrorResponder writes the HTTP response after the middleware reported a
// handler failure. err is the recovered failure.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// WithEnvironment sets the environment label. Default: "production".
func WithEnvironment(env string) Option {
	return func(o *options) { o.environment = env }
}

// WithCodeVersion stamps a code version (git SHA, release tag) into every
// report.
func WithCodeVersion(v string) Option {
	return func(o *options) { o.codeVersion = v }
}

// WithHost stamps a server/host identifier into every report.
func WithHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithEndpoint overrides the collector endpoint. Mainly for tests.
func WithEndpoint(url string) Option {
	return func(o *options) { o.endpoint = url }
}

// WithScrubFields adds field names to the sensitive-field list. Additions
// never replace the built-in list.
func WithScrubFields(fields ...string) Option {
	return func(o *options) { o.scrubFields = append(o.scrubFields, fields...) }
}

// WithRequestBodies includes (scrubbed) request bodies in request context.
// Off by default: without this option a supplied body is omitted entirely.
func WithRequestBodies() Option {
	return func(o *options) { o.includeRequestBody = true }
}

// WithDefaultCustom merges m into every report's custom data. Per-report
// custom data wins on key collision.
func WithDefaultCustom(m map[string]any) Option {
	return func(o *options) { o.defaults = m }
}

// WithVerbose logs every outgoing payload and parsed acknowledgement.
func WithVerbose() Option {
	return func(o *options) { o.verbose = true }
}

// WithCompression gzips outgoing report bodies.
func WithCompression() Option {
	return func(o *options) { o.compress = true }
}

// WithHTTPClient replaces the transport's HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger replaces the diagnostic logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithScheduler makes report delivery run through s instead of being
// awaited by the reporting call.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithRethrow makes the middleware re-panic the original recovered value
// after the report has been issued, instead of writing a response.
func WithRethrow() Option {
	return func(o *options) { o.rethrow = true }
}

// WithErrorResponder sets the response written by the middleware after a
// handler failure. Default: 500 with a generic JSON error body.
func WithErrorResponder(f ErrorResponder) Option {
	return func(o *options) { o.errorResponder = f }
}

func defaultOptions() options {
	return options{
		environment: "production",
	}
}
