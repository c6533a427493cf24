package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NewHandler returns the backend's routes. delay is inserted between
// streamed chunks.
func NewHandler(delay time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", handleOllamaChat(delay))
	mux.HandleFunc("GET /api/tags", handleOllamaTags)
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions(delay))
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// lastUserMessage returns the prompt the generator clients send.
func (r chatRequest) lastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

func decodeChat(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return req, false
	}
	if req.Model == "" {
		req.Model = "mock-model"
	}
	return req, true
}

// handleOllamaChat streams newline-delimited JSON, one message per chunk,
// and a final done object.
func handleOllamaChat(delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChat(w, r)
		if !ok {
			return
		}
		text := Reply(req.lastUserMessage())

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		flusher, _ := w.(http.Flusher)
		for _, c := range chunks(text) {
			enc.Encode(map[string]any{
				"model":   req.Model,
				"message": chatMessage{Role: "assistant", Content: c},
				"done":    false,
			})
			if flusher != nil {
				flusher.Flush()
			}
			pause(r, delay)
		}
		enc.Encode(map[string]any{
			"model":       req.Model,
			"message":     chatMessage{Role: "assistant"},
			"done":        true,
			"done_reason": "stop",
		})
	}
}

func handleOllamaTags(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"models": []map[string]any{{"name": "mock-model", "model": "mock-model"}},
	})
}

// handleChatCompletions answers Chat Completions requests, streamed as
// SSE when requested.
func handleChatCompletions(delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChat(w, r)
		if !ok {
			return
		}
		text := Reply(req.lastUserMessage())

		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-mock",
				"object": "chat.completion",
				"model":  req.Model,
				"choices": []map[string]any{{
					"index":         0,
					"message":       chatMessage{Role: "assistant", Content: text},
					"finish_reason": "stop",
				}},
			})
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		flusher, _ := w.(http.Flusher)
		send := func(delta map[string]any, finish any) {
			data, _ := json.Marshal(map[string]any{
				"id":     "chatcmpl-mock",
				"object": "chat.completion.chunk",
				"model":  req.Model,
				"choices": []map[string]any{{
					"index":         0,
					"delta":         delta,
					"finish_reason": finish,
				}},
			})
			fmt.Fprintf(w, "data: %s\n\n", data)
			if flusher != nil {
				flusher.Flush()
			}
		}

		send(map[string]any{"role": "assistant"}, nil)
		for _, c := range chunks(text) {
			send(map[string]any{"content": c}, nil)
			pause(r, delay)
		}
		send(map[string]any{}, "stop")
		fmt.Fprint(w, "data: [DONE]\n\n")
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func handleModels(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "test"},
		},
	})
}

func pause(r *http.Request, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-r.Context().Done():
	case <-time.After(d):
	}
}
