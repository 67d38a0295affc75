package viewer

import (
	"sync"
	"time"
)

// Notice is the single-slot transient message channel.  Showing a message
// replaces whatever is pending and restarts the expiry countdown; messages
// never queue.  Expiry is deadline-based: Current reports the message empty
// once its deadline has passed, whether or not the clearing timer has fired,
// so reads never race the timer goroutine.
type Notice struct {
	mu       sync.Mutex
	ttl      time.Duration
	text     string
	deadline time.Time
	timer    *time.Timer
	seq      uint64
}

// NewNotice creates a notice channel whose messages live for ttl.
func NewNotice(ttl time.Duration) *Notice {
	return &Notice{ttl: ttl}
}

// Show replaces the current message and restarts the expiry countdown.
func (n *Notice) Show(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	n.text = text
	n.deadline = time.Now().Add(n.ttl)

	seq := n.seq
	n.timer = time.AfterFunc(n.ttl, func() { n.expire(seq) })
}

// expire clears the message the timer was armed for.  A stale timer — one
// superseded by a later Show or by Teardown — finds a newer sequence number
// and leaves the slot alone.
func (n *Notice) expire(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seq != seq {
		return
	}
	n.text = ""
	n.timer = nil
}

// Current returns the displayed message, or "" once it has expired.
func (n *Notice) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.text == "" || !time.Now().Before(n.deadline) {
		return ""
	}
	return n.text
}

// Teardown cancels the pending timer and clears the slot.
func (n *Notice) Teardown() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	n.text = ""
}
