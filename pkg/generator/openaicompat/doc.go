// Package openaicompat streams generations from any backend that speaks
// the OpenAI Chat Completions API (vLLM, LiteLLM, llama.cpp server and
// similar). It handles request serialization, SSE chunk parsing and
// HTTP error mapping.
package openaicompat
