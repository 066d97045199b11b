// Package live delivers full collection snapshots to subscribers whenever a
// collection changes.
package live

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Hub tracks subscribers per collection and wakes them on change.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*registration]struct{}
	active *prometheus.GaugeVec
	logger zerolog.Logger
}

// registration is one subscriber. wake holds at most one pending signal so
// bursts of changes collapse into a single refetch.
type registration struct {
	wake chan struct{}
}

// NewHub creates a Hub. The subscription gauge is registered with reg when it is not nil.
func NewHub(logger zerolog.Logger, reg prometheus.Registerer) (*Hub, error) {
	h := &Hub{
		subs: make(map[string]map[*registration]struct{}),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "live_subscriptions",
				Help: "Number of open live collection subscriptions.",
			},
			[]string{"collection"},
		),
		logger: logger.With().Str("component", "live").Logger(),
	}
	if reg != nil {
		if err := reg.Register(h.active); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hub) register(collection string) *registration {
	r := &registration{wake: make(chan struct{}, 1)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[collection]
	if !ok {
		set = make(map[*registration]struct{})
		h.subs[collection] = set
	}
	set[r] = struct{}{}
	h.active.WithLabelValues(collection).Inc()

	h.logger.Debug().Str("collection", collection).Int("subscribers", len(set)).Msg("subscriber registered")
	return r
}

func (h *Hub) unregister(collection string, r *registration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[collection]
	if !ok {
		return
	}
	if _, ok := set[r]; !ok {
		return
	}
	delete(set, r)
	if len(set) == 0 {
		delete(h.subs, collection)
	}
	h.active.WithLabelValues(collection).Dec()

	h.logger.Debug().Str("collection", collection).Int("subscribers", len(set)).Msg("subscriber released")
}

// allCollections wakes every subscriber when published.
const allCollections = "*"

// Publish signals every subscriber of collection that its data changed.
// It never blocks.
func (h *Hub) Publish(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if collection == allCollections {
		for _, set := range h.subs {
			wakeAll(set)
		}
		return
	}
	wakeAll(h.subs[collection])
}

func wakeAll(set map[*registration]struct{}) {
	for r := range set {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions on collection.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}
