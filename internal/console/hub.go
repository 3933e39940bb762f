package console

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultHistory is how many recent lines a new subscriber receives.
const DefaultHistory = 500

// subscriberBuffer bounds each subscriber's queue. Lines beyond it are
// dropped for that subscriber only.
const subscriberBuffer = 256

// Hub fans log lines out to live subscribers and keeps the last N lines
// for late joiners. It implements io.Writer so a slog text handler can
// publish through it; see Handler.
type Hub struct {
	mu      sync.Mutex
	history []string
	next    int
	full    bool
	subs    map[chan string]struct{}
	dropped int
	closed  bool
}

// NewHub creates a hub retaining up to history lines.
func NewHub(history int) *Hub {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Hub{
		history: make([]string, history),
		subs:    make(map[chan string]struct{}),
	}
}

// Handler returns a slog handler that formats records as short text lines
// and publishes them.
func (h *Hub) Handler(level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(h, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.TimeOnly))
			}
			return a
		},
	})
}

// Write publishes p as one line per newline-terminated record.
func (h *Hub) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		h.Publish(string(line))
	}
	return len(p), nil
}

// Publish appends line to the history and offers it to every subscriber
// without blocking.
func (h *Hub) Publish(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history[h.next] = line
	h.next = (h.next + 1) % len(h.history)
	if h.next == 0 {
		h.full = true
	}

	for ch := range h.subs {
		select {
		case ch <- line:
		default:
			h.dropped++
		}
	}
}

// Subscribe returns a channel of live lines, the history at the moment of
// subscribing, and a cancel func that must be called to unsubscribe.
func (h *Hub) Subscribe() (<-chan string, []string, func()) {
	ch := make(chan string, subscriberBuffer)

	h.mu.Lock()
	backlog := h.snapshot()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, backlog, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
	return ch, backlog, cancel
}

// Close ends every live subscription and makes later subscriptions end
// immediately. Lines published afterwards are still kept in the history.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// History returns the retained lines, oldest first.
func (h *Hub) History() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot()
}

// Dropped reports how many lines were discarded for slow subscribers.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// snapshot must be called with the lock held.
func (h *Hub) snapshot() []string {
	if !h.full {
		return append([]string(nil), h.history[:h.next]...)
	}
	out := make([]string, 0, len(h.history))
	out = append(out, h.history[h.next:]...)
	return append(out, h.history[:h.next]...)
}

// Welcome publishes the banner shown when the console opens.
func (h *Hub) Welcome(maxCompanies, searchWords int, engines []string) {
	lines := []string{
		"sitehunt console ready",
		"features:",
		fmt.Sprintf("  - supports up to %d companies", maxCompanies),
		fmt.Sprintf("  - uses the first %d words of the name for search", searchWords),
		"  - filters out general websites such as directories and social media",
		"  - search engines in order: " + strings.Join(engines, ", "),
		"  - automatic progress saving",
		"------------------------------------------------------------",
	}
	for _, l := range lines {
		h.Publish(l)
	}
}
