package core

import (
	"encoding/json"
	"fmt"
)

// Content is the payload carried by an Envelope. Concrete content types
// implement the unexported isContent marker enabling a closed set.
type Content interface{ isContent() }

// Text is a plain natural language message.
type Text struct {
	Text string `json:"text"`
}

// isContent implements the Content interface for Text.
func (Text) isContent() {}

// ToolCall describes a tool invocation request issued by an agent.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// isContent implements the Content interface for ToolCall.
func (ToolCall) isContent() {}

// ArgumentsJSON returns the arguments serialized as a JSON object.
func (c ToolCall) ArgumentsJSON() string {
	if len(c.Arguments) == 0 {
		return "{}"
	}

	b, err := json.Marshal(c.Arguments)
	if err != nil {
		return "{}"
	}

	return string(b)
}

// ToolResult describes the outcome of exactly one ToolCall.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// isContent implements the Content interface for ToolResult.
func (ToolResult) isContent() {}

// JSON renders the result in the {ok, data} / {ok, error} wire shape handed
// back to models.
func (r ToolResult) JSON() string {
	payload := map[string]any{"ok": r.OK}
	if r.OK {
		payload["data"] = r.Data
	} else {
		payload["error"] = r.Error
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":%q}`, err.Error())
	}

	return string(b)
}

// NewToolResult builds a successful result for the given call.
func NewToolResult(call ToolCall, data any) ToolResult {
	return ToolResult{CallID: call.ID, Name: call.Name, OK: true, Data: data}
}

// NewToolFailure builds a failed result for the given call.
func NewToolFailure(call ToolCall, err error) ToolResult {
	return ToolResult{CallID: call.ID, Name: call.Name, OK: false, Error: err.Error()}
}

// ContentText returns a human readable rendering of any content value.
func ContentText(c Content) string {
	switch v := c.(type) {
	case Text:
		return v.Text
	case ToolCall:
		return fmt.Sprintf("%s(%s)", v.Name, v.ArgumentsJSON())
	case ToolResult:
		return v.JSON()
	default:
		return ""
	}
}

// contentKind names the content variant for serialization.
func contentKind(c Content) string {
	switch c.(type) {
	case Text:
		return "text"
	case ToolCall:
		return "tool_call"
	case ToolResult:
		return "tool_result"
	default:
		return "unknown"
	}
}

// cloneContent returns c with its mutable payload copied, so envelopes never
// share maps or slices with their creator or their readers.
func cloneContent(c Content) Content {
	switch v := c.(type) {
	case ToolCall:
		if v.Arguments != nil {
			v.Arguments = cloneValue(v.Arguments).(map[string]any)
		}

		return v
	case ToolResult:
		v.Data = cloneValue(v.Data)
		return v
	default:
		return c
	}
}

// cloneValue deep-copies the JSON-shaped containers found in tool payloads.
// Other values are returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}

		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, e := range t {
			out[k] = e
		}

		return out
	default:
		return v
	}
}
