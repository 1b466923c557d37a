package chatclient

import (
	"context"
	"sync"
	"time"
)

const DefaultPollInterval = 30 * time.Second

// UnreadFetcher returns the authoritative unread notification count.
// *Client implements it.
type UnreadFetcher interface {
	UnreadCount(ctx context.Context) (int64, error)
}

// UnreadCounter tracks the unread notification badge. While the live stream
// is up it is driven by notification events; while it is down it polls.
type UnreadCounter struct {
	mu       sync.Mutex
	count    int64
	fetcher  UnreadFetcher
	online   func() bool
	interval time.Duration
	onChange func(int64)
}

// NewUnreadCounter builds a counter. online reports whether the live stream
// is connected; nil means always offline.
func NewUnreadCounter(fetcher UnreadFetcher, online func() bool, interval time.Duration) *UnreadCounter {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if online == nil {
		online = func() bool { return false }
	}
	return &UnreadCounter{
		fetcher:  fetcher,
		online:   online,
		interval: interval,
	}
}

// OnChange registers a callback invoked with the new count after it changes.
func (u *UnreadCounter) OnChange(fn func(int64)) {
	u.mu.Lock()
	u.onChange = fn
	u.mu.Unlock()
}

func (u *UnreadCounter) Count() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}

// update applies fn to the count under the lock and fires the callback if
// the value changed.
func (u *UnreadCounter) update(fn func(int64) int64) {
	u.mu.Lock()
	n := fn(u.count)
	changed := n != u.count
	u.count = n
	onChange := u.onChange
	u.mu.Unlock()

	if changed && onChange != nil {
		onChange(n)
	}
}

func (u *UnreadCounter) set(n int64) {
	u.update(func(int64) int64 { return n })
}

// Increment applies a live notification.
func (u *UnreadCounter) Increment() {
	u.update(func(n int64) int64 { return n + 1 })
}

// Decrement applies a local mark-read. The count never goes below zero.
func (u *UnreadCounter) Decrement() {
	u.update(func(n int64) int64 {
		if n > 0 {
			return n - 1
		}
		return 0
	})
}

func (u *UnreadCounter) Reset() {
	u.set(0)
}

// Refresh fetches the count from the server.
func (u *UnreadCounter) Refresh(ctx context.Context) error {
	n, err := u.fetcher.UnreadCount(ctx)
	if err != nil {
		return err
	}
	u.set(n)
	return nil
}

// Poll refreshes only when the live stream is down.
func (u *UnreadCounter) Poll(ctx context.Context) (bool, error) {
	if u.online() {
		return false, nil
	}
	return true, u.Refresh(ctx)
}

// Run refreshes once and then polls until ctx is done. Fetch errors are
// retried on the next tick.
func (u *UnreadCounter) Run(ctx context.Context) {
	_ = u.Refresh(ctx)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = u.Poll(ctx)
		}
	}
}
