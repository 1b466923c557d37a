package chatclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	count atomic.Int64
	calls atomic.Int32
	err   error
}

func (f *fakeFetcher) UnreadCount(context.Context) (int64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return f.count.Load(), nil
}

func TestUnreadPollsOnlyWhenOffline(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.count.Store(4)
	var online atomic.Bool
	online.Store(true)

	counter := NewUnreadCounter(fetcher, online.Load, time.Minute)

	polled, err := counter.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, polled)
	assert.Zero(t, fetcher.calls.Load())

	online.Store(false)
	polled, err = counter.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, polled)
	assert.Equal(t, int64(4), counter.Count())
}

func TestUnreadLiveUpdatesAndCallback(t *testing.T) {
	counter := NewUnreadCounter(&fakeFetcher{}, nil, time.Minute)

	var seen []int64
	counter.OnChange(func(n int64) { seen = append(seen, n) })

	counter.Increment()
	counter.Increment()
	counter.Decrement()
	counter.Reset()
	counter.Decrement()

	assert.Equal(t, []int64{1, 2, 1, 0}, seen)
	assert.Zero(t, counter.Count())
}

func TestUnreadRefreshErrorKeepsCount(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("offline")}
	counter := NewUnreadCounter(fetcher, nil, time.Minute)
	counter.Increment()

	_, err := counter.Poll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int64(1), counter.Count())
}

func TestUnreadRunPolls(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.count.Store(2)
	counter := NewUnreadCounter(fetcher, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		counter.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return fetcher.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), counter.Count())

	cancel()
	<-done
}

func TestUnreadConcurrentIncrementsAreNotLost(t *testing.T) {
	counter := NewUnreadCounter(&fakeFetcher{}, nil, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter.Increment()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(200), counter.Count())
}
