//go:build !integration

package redis

import (
	"context"
	"sync"
	"time"
)

// fakeClient is an in-memory RedisClient good enough for counter and lock tests.
type fakeClient struct {
	mu      sync.Mutex
	vals    map[string]string
	counts  map[string]int64
	ttls    map[string]time.Duration
	incrErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{vals: map[string]string{}, counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeClient) Expire(_ context.Context, key string, d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = d
	return nil
}

func (f *fakeClient) SetNX(_ context.Context, key string, value interface{}, d time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vals[key]; ok {
		return false, nil
	}
	f.vals[key] = value.(string)
	f.ttls[key] = d
	return true, nil
}

func (f *fakeClient) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vals[key] != value {
		return false, nil
	}
	delete(f.vals, key)
	return true, nil
}

func (f *fakeClient) Close() error { return nil }
