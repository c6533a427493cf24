package repair

import "github.com/rhuss/laph/pkg/api"

// Observer receives generator progress. For every generator call it sees
// one prompt event carrying the full prompt, one start event, the
// streamed chunks and one end event. Observers must ignore markers they
// do not know.
type Observer interface {
	Notify(ev api.Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev api.Event)

// Notify implements Observer.
func (f ObserverFunc) Notify(ev api.Event) { f(ev) }

type nopObserver struct{}

func (nopObserver) Notify(api.Event) {}
