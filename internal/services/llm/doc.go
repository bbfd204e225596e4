// Package llm is a chat completion client for OpenAI-compatible endpoints
// (OpenRouter by default) with support for image inputs.
//
// The identification pipeline uses it to read printed identifiers off CD
// photos: CompleteVisionJSON sends a system prompt, a user prompt and the
// image URLs as image_url content parts and returns the model's JSON reply.
// DecodeLLMJSON tolerates code fences and prose around the JSON object.
//
// # Retry Behaviour
//
// The client retries HTTP 408/429/5xx responses, empty completions and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). A Retry-After header overrides the backoff.
// Context cancellation aborts retries immediately.
package llm
