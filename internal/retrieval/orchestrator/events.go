package orchestrator

import "github.com/vietddude/mediafetch/internal/core/domain"

// Observer receives progress events synchronously with each transition.
// It must not block; a panicking observer is logged and ignored.
type Observer func(domain.Event)

// ChannelObserver forwards events to ch without blocking. Events are dropped
// when ch is full.
func ChannelObserver(ch chan<- domain.Event) Observer {
	return func(ev domain.Event) {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Observers fans an event out to every non-nil observer. A panicking
// observer does not stop delivery to the ones after it; the first panic is
// re-raised once every observer has run.
func Observers(obs ...Observer) Observer {
	return func(ev domain.Event) {
		var first any
		for _, o := range obs {
			if o == nil {
				continue
			}
			func() {
				defer func() {
					if p := recover(); p != nil && first == nil {
						first = p
					}
				}()
				o(ev)
			}()
		}
		if first != nil {
			panic(first)
		}
	}
}
