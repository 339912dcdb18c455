package poller

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat262/internal/client"
	"chat262/internal/wire"
)

type fakeReceiver struct {
	mu    sync.Mutex
	texts []client.Text
	calls int
}

func (f *fakeReceiver) RecvTxt(sender []byte) (wire.StatusCode, []client.Text, client.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]client.Text, len(f.texts))
	copy(out, f.texts)
	return wire.StatusOK, out, client.Ok
}

func (f *fakeReceiver) push(t client.Text) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, t)
}

func TestPollerUpdatesOnCountChange(t *testing.T) {
	fake := &fakeReceiver{}
	var updates [][]client.Text
	var mu sync.Mutex

	p := New(fake, []byte("bobby123"), 5*time.Millisecond, func(texts []client.Text) {
		mu.Lock()
		updates = append(updates, texts)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.Run()
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updates) >= 1
	}, time.Second, 2*time.Millisecond, "initial empty snapshot should be delivered")

	fake.push(client.Text{Tag: 0, Content: []byte("hi")})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, u := range updates {
			if len(u) == 1 {
				return true
			}
		}
		return false
	}, time.Second, 2*time.Millisecond)

	p.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerStopIsIdempotentAndPrompt(t *testing.T) {
	fake := &fakeReceiver{}
	p := New(fake, []byte("bobby123"), time.Hour, func([]client.Text) {})

	done := make(chan struct{})
	go func() {
		p.Run()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	p.Stop()
	p.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop promptly")
	}
	require.Less(t, time.Since(start), time.Second)
}
