package testutil

import (
	"context"
	"sync"

	"github.com/ashalaginvimeo/AS-test/internal/llm"
)

// Reply is one scripted provider outcome
type Reply struct {
	Response *llm.GenerateResponse
	Err      error
	// Release, when non-nil, blocks the call until it is closed or the context ends
	Release chan struct{}
}

// FakeProvider is an llm.Provider that returns scripted replies in order.
// When the script runs out the last reply is repeated.
type FakeProvider struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.GenerateRequest
	caps     llm.Capabilities
	model    string
	started  chan int
}

// NewFakeProvider creates a fake with full capabilities and the given script
func NewFakeProvider(replies ...Reply) *FakeProvider {
	return &FakeProvider{
		replies: replies,
		caps:    llm.Capabilities{StructuredOutput: true, WebSearch: true},
		model:   "fake-model",
		started: make(chan int, 64),
	}
}

// TextReply is a successful reply carrying text
func TextReply(text string, citations ...llm.Citation) Reply {
	return Reply{Response: &llm.GenerateResponse{Text: text, Citations: citations, StopReason: "STOP", Model: "fake-model"}}
}

// ErrorReply is a failing reply
func ErrorReply(err error) Reply {
	return Reply{Err: err}
}

// BlockingReply is a successful reply that waits for release to be closed
func BlockingReply(text string, release chan struct{}) Reply {
	r := TextReply(text)
	r.Release = release
	return r
}

// SetCapabilities overrides the reported capabilities
func (f *FakeProvider) SetCapabilities(caps llm.Capabilities) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.caps = caps
}

func (f *FakeProvider) ID() llm.ProviderID { return "fake" }
func (f *FakeProvider) Name() string       { return "Fake" }
func (f *FakeProvider) Models() []llm.Model {
	return []llm.Model{{ID: "fake-model", Name: "Fake Model", StructuredOutput: true, WebSearch: true}}
}
func (f *FakeProvider) DefaultModel() string { return f.model }

func (f *FakeProvider) SetModel(modelID string) error {
	if err := llm.ValidateModelID(modelID, f.Models()); err != nil {
		return err
	}
	f.model = modelID
	return nil
}

func (f *FakeProvider) Capabilities() llm.Capabilities {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caps
}

// Generate records the request and plays the next scripted reply
func (f *FakeProvider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.mu.Lock()
	idx := len(f.requests)
	f.requests = append(f.requests, *req)
	var reply Reply
	switch {
	case len(f.replies) == 0:
		reply = TextReply("")
	case idx < len(f.replies):
		reply = f.replies[idx]
	default:
		reply = f.replies[len(f.replies)-1]
	}
	f.mu.Unlock()

	select {
	case f.started <- idx:
	default:
	}

	if reply.Release != nil {
		select {
		case <-reply.Release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return reply.Response, nil
}

// Started delivers the index of each call as it begins
func (f *FakeProvider) Started() <-chan int {
	return f.started
}

// Calls returns the number of Generate calls made
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns a copy of every request received
func (f *FakeProvider) Requests() []llm.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.GenerateRequest(nil), f.requests...)
}
