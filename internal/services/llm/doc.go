// Package llm provides a vision chat client for any OpenAI-compatible endpoint
// (OpenRouter by default, also OpenAI or a local Ollama /v1 server).
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteVision: send one prompt plus a JPEG frame, receive raw text.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON / FirstJSONObject: recover JSON from chatty model replies.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). Context cancellation aborts retries immediately.
// Backoff and Sleep are exported so callers layering their own retry loop on
// top (for malformed payloads) share the same schedule.
package llm
