package payload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/beacon/internal/scrub"
)

func testFrames() []Frame {
	l, c := 1, 2
	return []Frame{{Filename: "a.js", Lineno: &l, Colno: &c, Method: "foo"}}
}

func TestBuildTraceStampsBaseFields(t *testing.T) {
	b := NewBuilder(BuilderConfig{Token: "tok", Environment: "staging"})
	before := time.Now().Unix()
	doc := b.BuildTrace("error", Exception{Class: "TypeError", Message: "boom"}, testFrames(), nil)

	assert.Equal(t, "tok", doc.AccessToken)
	assert.Equal(t, "staging", doc.Data.Environment)
	assert.Equal(t, "error", doc.Data.Level)
	assert.GreaterOrEqual(t, doc.Data.Timestamp, before)
	assert.LessOrEqual(t, doc.Data.Timestamp, time.Now().Unix())
	assert.Equal(t, Platform, doc.Data.Platform)
	assert.Equal(t, Language, doc.Data.Language)
	assert.Equal(t, Notifier{Name: NotifierName, Version: NotifierVersion}, doc.Data.Notifier)

	body, ok := doc.Data.Body.(TraceBody)
	require.True(t, ok)
	assert.Equal(t, "TypeError", body.Trace.Exception.Class)
	assert.Equal(t, testFrames(), body.Trace.Frames)
}

func TestEnvironmentDefaultsToProduction(t *testing.T) {
	b := NewBuilder(BuilderConfig{Token: "tok"})
	doc := b.BuildMessage("info", "hi", nil, nil)
	assert.Equal(t, "production", doc.Data.Environment)
}

func TestConditionalStamps(t *testing.T) {
	bare := NewBuilder(BuilderConfig{Token: "tok"})
	doc := bare.BuildMessage("info", "hi", nil, nil)
	assert.Empty(t, doc.Data.CodeVersion)
	assert.Nil(t, doc.Data.Server)

	full := NewBuilder(BuilderConfig{Token: "tok", CodeVersion: "abc123", Host: "edge-1"})
	doc = full.BuildMessage("info", "hi", nil, nil)
	assert.Equal(t, "abc123", doc.Data.CodeVersion)
	require.NotNil(t, doc.Data.Server)
	assert.Equal(t, "edge-1", doc.Data.Server.Host)
}

func TestCustomMergeOrder(t *testing.T) {
	b := NewBuilder(BuilderConfig{
		Token:    "tok",
		Defaults: map[string]any{"region": "fra1", "tier": "default"},
	})
	doc := b.BuildMessage("info", "hi", nil, &Context{
		Custom: map[string]any{"tier": "override", "password": "x"},
	})

	assert.Equal(t, "fra1", doc.Data.Custom["region"])
	assert.Equal(t, "override", doc.Data.Custom["tier"])
	assert.Equal(t, scrub.Scrubbed, doc.Data.Custom["password"])
}

func TestDefaultsAreScrubbed(t *testing.T) {
	b := NewBuilder(BuilderConfig{
		Token:    "tok",
		Defaults: map[string]any{"apiKey": "k"},
	})
	doc := b.BuildMessage("info", "hi", nil, nil)
	assert.Equal(t, scrub.Scrubbed, doc.Data.Custom["apiKey"])
}

func TestPersonAttachedVerbatim(t *testing.T) {
	b := NewBuilder(BuilderConfig{Token: "tok", ScrubFields: []string{"email"}})
	p := &Person{ID: "42", Username: "alice", Email: "a@example.com"}
	doc := b.BuildMessage("info", "hi", nil, &Context{Person: p})

	// Person is caller-trusted identity data, not subject to scrubbing.
	require.NotNil(t, doc.Data.Person)
	assert.Equal(t, "a@example.com", doc.Data.Person.Email)
}

func TestRequestHeadersScrubbed(t *testing.T) {
	b := NewBuilder(BuilderConfig{Token: "tok"})
	doc := b.BuildMessage("info", "hi", nil, &Context{
		Request: &Request{
			URL:     "https://svc.example/run",
			Headers: map[string]string{"Authorization": "Bearer x", "X-Custom": "v"},
		},
	})

	require.NotNil(t, doc.Data.Request)
	assert.Equal(t, scrub.Scrubbed, doc.Data.Request.Headers["Authorization"])
	assert.Equal(t, "v", doc.Data.Request.Headers["X-Custom"])
}

func TestRequestBodyGating(t *testing.T) {
	rctx := func() *Context {
		return &Context{Request: &Request{Body: map[string]any{"password": "p", "q": "ok"}}}
	}

	off := NewBuilder(BuilderConfig{Token: "tok"})
	doc := off.BuildMessage("info", "hi", nil, rctx())
	assert.Nil(t, doc.Data.Request.Body)

	on := NewBuilder(BuilderConfig{Token: "tok", IncludeRequestBody: true})
	doc = on.BuildMessage("info", "hi", nil, rctx())
	body, ok := doc.Data.Request.Body.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, scrub.Scrubbed, body["password"])
	assert.Equal(t, "ok", body["q"])
}

func TestPassthroughFields(t *testing.T) {
	b := NewBuilder(BuilderConfig{Token: "tok"})
	doc := b.BuildMessage("info", "hi", nil, &Context{
		Fingerprint: "fp-1",
		Title:       "custom title",
		UUID:        "occ-1",
	})
	assert.Equal(t, "fp-1", doc.Data.Fingerprint)
	assert.Equal(t, "custom title", doc.Data.Title)
	assert.Equal(t, "occ-1", doc.Data.UUID)
}

func TestUUIDGeneratedWhenAbsent(t *testing.T) {
	b := NewBuilder(BuilderConfig{Token: "tok"})
	doc := b.BuildMessage("info", "hi", nil, nil)
	_, err := uuid.Parse(doc.Data.UUID)
	assert.NoError(t, err)
}

func TestMessageBodyShape(t *testing.T) {
	b := NewBuilder(BuilderConfig{Token: "tok"})
	doc := b.BuildMessage("info", "deploy finished", map[string]any{"commit": "abc", "token": "x"}, nil)

	body, ok := doc.Data.Body.(MessageBody)
	require.True(t, ok)
	assert.Equal(t, "deploy finished", body.Message["body"])
	assert.Equal(t, "abc", body.Message["commit"])
	assert.Equal(t, scrub.Scrubbed, body.Message["token"])
}

func TestExtraFieldCannotShadowMessageBody(t *testing.T) {
	b := NewBuilder(BuilderConfig{Token: "tok"})
	doc := b.BuildMessage("info", "real message", map[string]any{"body": "imposter"}, nil)

	body := doc.Data.Body.(MessageBody)
	assert.Equal(t, "real message", body.Message["body"])
}

func TestDocumentSerializesCleanly(t *testing.T) {
	b := NewBuilder(BuilderConfig{Token: "tok"})

	cyclic := map[string]any{"k": "v"}
	cyclic["self"] = cyclic
	doc := b.BuildMessage("warning", "cycle", nil, &Context{Custom: cyclic})

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	data := decoded["data"].(map[string]any)
	custom := data["custom"].(map[string]any)
	assert.Equal(t, scrub.Circular, custom["self"])

	// Exactly one body variant on the wire.
	bodyObj := data["body"].(map[string]any)
	assert.Contains(t, bodyObj, "message")
	assert.NotContains(t, bodyObj, "trace")
}
