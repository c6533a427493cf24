package engine

import (
	"context"

	"github.com/rhuss/laph/pkg/api"
	"github.com/rhuss/laph/pkg/debug"
	"github.com/rhuss/laph/pkg/transport"
)

// streamState numbers the events of one streamed run.
type streamState struct {
	seq int
}

// nextSeq returns the current sequence number and increments it.
func (s *streamState) nextSeq() int {
	n := s.seq
	s.seq++
	return n
}

// streamObserver forwards generator notifications to a streaming client.
// The orchestrator notifies from a single goroutine, so no locking is
// needed. After the first write error further events are dropped; the
// run itself continues and is still recorded.
type streamObserver struct {
	ctx   context.Context
	w     transport.EventWriter
	state *streamState
	err   error
}

func (o *streamObserver) Notify(ev api.Event) {
	if o.err != nil {
		return
	}
	e := ev
	o.err = o.write(api.RunEvent{
		Type:           api.GeneratorEventType(ev.Marker),
		SequenceNumber: o.state.nextSeq(),
		Event:          &e,
	})
	if o.err != nil {
		debug.Log("transport", "dropping stream events", "error", o.err)
	}
}

func (o *streamObserver) write(ev api.RunEvent) error {
	if err := o.w.WriteEvent(o.ctx, ev); err != nil {
		return err
	}
	return o.w.Flush()
}

// terminalEventType returns the lifecycle event closing a run stream.
func terminalEventType(s api.RunStatus) api.RunEventType {
	switch s {
	case api.RunStatusSucceeded:
		return api.EventRunCompleted
	case api.RunStatusCancelled:
		return api.EventRunCancelled
	default:
		return api.EventRunExhausted
	}
}
