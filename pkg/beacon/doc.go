// Package beacon reports application errors and log messages to a remote
// collector. It is built for short-lived edge and serverless handlers:
// one report is one fire-and-forget POST, arbitrary caller data is
// defensively scrubbed and cycle-safe, and a failure in the data being
// reported never prevents the attempt to report it.
//
// Quick start:
//
//	client, err := beacon.New(token,
//	    beacon.WithEnvironment("staging"),
//	    beacon.WithScrubFields("session_id"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.Error(ctx, err)
//	client.Info(ctx, "cache warmed", map[string]any{"keys": 1200})
//
//	http.Handle("/", client.Middleware(mux))
//
// A Client is immutable after construction and safe for concurrent use.
// Binding a person derives a new independent client:
//
//	userClient := client.WithPerson(beacon.Person{ID: "42"})
package beacon
