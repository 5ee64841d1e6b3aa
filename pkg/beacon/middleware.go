package beacon

import (
	"fmt"
	"net/http"
)

// Middleware wraps next so that a panicking handler produces exactly one
// error report. After the report is issued the middleware either rethrows
// the original panic value (WithRethrow), delegates the response to a
// configured ErrorResponder, or writes a 500 with a generic JSON body.
// Non-error panic values are reported with class "Error" and the value's
// string form as the message.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			err := panicError(v)
			c.Error(r.Context(), err, WithRequest(r))

			if c.opts.rethrow {
				panic(v)
			}
			if c.opts.errorResponder != nil {
				c.opts.errorResponder(w, r, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"internal server error"}`))
		}()
		next.ServeHTTP(w, r)
	})
}

// Wrap is Middleware for a bare HandlerFunc.
func (c *Client) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return c.Middleware(next).ServeHTTP
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("%v", v)
}
