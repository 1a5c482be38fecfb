// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside agentrelay.
//
// Core goals:
//   - Normalize tool call representation (ToolDefinition, ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate deterministic mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so agents remain decoupled from vendor SDKs.
package model
