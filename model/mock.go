package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockModel is a deterministic in-memory Model for tests, examples and the
// offline CLI. Scripted responses are returned in order; once the script is
// exhausted canned prompt responses (keyed by the last user message) are
// used, and finally a generic echo.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	script    []Response
	responses map[string]string
	requests  []Request
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock", SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned text completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[prompt] = response
}

// Script appends responses returned by successive Generate calls.
func (m *MockModel) Script(responses ...Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, responses...)

	return m
}

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.script) > 0 {
		resp := m.script[0]
		m.script = m.script[1:]

		if resp.ID == "" {
			resp.ID = uuid.NewString()
		}

		return resp, nil
	}

	if len(req.Messages) == 0 {
		return Response{}, fmt.Errorf("no messages provided")
	}

	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			input = req.Messages[i].Text
			break
		}
	}

	text, ok := m.responses[input]
	if !ok {
		text = fmt.Sprintf("Mock response to: %s", input)
	}

	return Response{ID: uuid.NewString(), Text: text, FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// CallResponse builds a scripted response issuing a single tool call.
func CallResponse(name string, args map[string]any) Response {
	b, err := json.Marshal(args)
	if err != nil {
		b = []byte("{}")
	}

	return Response{
		ToolCalls:    []ToolCall{{ID: "call_" + uuid.NewString()[:8], Name: name, Arguments: string(b)}},
		FinishReason: "tool_calls",
	}
}

// HandOverResponse builds a scripted hand_over call.
func HandOverResponse(recipient, message string) Response {
	return CallResponse("hand_over", map[string]any{"recipient": recipient, "message": message})
}

// TextResponse builds a scripted plain text answer.
func TextResponse(text string) Response {
	return Response{Text: text, FinishReason: "stop"}
}
