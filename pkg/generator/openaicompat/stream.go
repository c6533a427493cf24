package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/laph/pkg/debug"
	"github.com/rhuss/laph/pkg/generator"
)

// maxLineSize bounds a single SSE line. Chunks are small but some servers
// put a whole reasoning trace in one event.
const maxLineSize = 1 << 20

// ParseSSEStream reads Chat Completions SSE chunks from body and sends the
// content deltas on ch. The channel is not closed by this function.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//
// Malformed chunks are logged and skipped. Context cancellation stops
// reading immediately. A read error is reported as a final error chunk.
func ParseSSEStream(ctx context.Context, body io.Reader, ch chan<- generator.Chunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()

		// Empty lines, comments and event: fields carry no content.
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		if payload == "[DONE]" {
			return
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", debug.Truncate(payload, 200),
			)
			continue
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content == nil || *choice.Delta.Content == "" {
				continue
			}
			if !generator.Send(ctx, ch, generator.Chunk{Text: *choice.Delta.Content}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		generator.Send(ctx, ch, generator.Chunk{Err: fmt.Errorf("reading stream: %w", err)})
	}
}
