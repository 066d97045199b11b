package live

import "sync"

// State is the loading state of a bound list.
type State int

const (
	Loading State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// View is what a bound list shows at one moment.
type View[T any] struct {
	State State
	Items []T
	Err   error
}

// Source produces snapshots until it is closed.
type Source[T any] interface {
	Snapshots() <-chan Snapshot[T]
	Close()
}

// Binding mirrors a Source into an in-memory list. Every snapshot replaces the
// list wholesale; an error keeps the last items and leaves the loading state.
type Binding[T any] struct {
	mu       sync.RWMutex
	view     View[T]
	src      Source[T]
	onChange func(View[T])
	done     chan struct{}
}

// Bind starts mirroring src. onChange, if set, is called from the binding's
// goroutine after each update.
func Bind[T any](src Source[T], onChange func(View[T])) *Binding[T] {
	b := &Binding[T]{
		view:     View[T]{State: Loading},
		src:      src,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Binding[T]) run() {
	defer close(b.done)
	for snap := range b.src.Snapshots() {
		b.mu.Lock()
		if snap.Err != nil {
			b.view = View[T]{State: Failed, Items: b.view.Items, Err: snap.Err}
		} else {
			items := snap.Items
			if items == nil {
				items = []T{}
			}
			b.view = View[T]{State: Ready, Items: items}
		}
		v := b.view
		b.mu.Unlock()

		if b.onChange != nil {
			b.onChange(v)
		}
	}
}

// View returns the current state of the list.
func (b *Binding[T]) View() View[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view
}

// Close releases the source and waits for the binding to stop.
func (b *Binding[T]) Close() {
	b.src.Close()
	<-b.done
}
