package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimpleSessionLockManager_SerializesSameKey(t *testing.T) {
	m := NewSimpleSessionLockManager()
	var inFlight int32
	var maxInFlight int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Lock("shared")
			defer m.Unlock("shared")

			n := atomic.AddInt32(&inFlight, 1)
			for {
				max := atomic.LoadInt32(&maxInFlight)
				if n <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInFlight, "critical section under the same key must never overlap")
}

func TestSimpleSessionLockManager_DistinctKeysRunConcurrently(t *testing.T) {
	m := NewSimpleSessionLockManager()
	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]time.Duration, 2)

	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			t0 := time.Now()
			key := "a"
			if i == 1 {
				key = "b"
			}
			m.Lock(key)
			time.Sleep(20 * time.Millisecond)
			m.Unlock(key)
			results[i] = time.Since(t0)
		}()
	}
	close(start)
	wg.Wait()

	for _, d := range results {
		assert.Less(t, d, 60*time.Millisecond, "distinct keys should not serialize against each other")
	}
}

func TestSafeGo_RecoversFromPanic(t *testing.T) {
	done := make(chan interface{}, 1)
	SafeGo(func() {
		panic("boom")
	}, func(r interface{}) {
		done <- r
	})

	select {
	case r := <-done:
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("onPanic callback was not invoked")
	}
}

func TestSafeGo_RunsFunctionNormally(t *testing.T) {
	done := make(chan struct{})
	SafeGo(func() {
		close(done)
	}, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function was not run")
	}
}
