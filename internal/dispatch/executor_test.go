package dispatch

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/calyptra/voxwire/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("error") // Suppress logs in tests
	os.Exit(m.Run())
}

func TestExecutorRunsInSubmissionOrder(t *testing.T) {
	e := NewExecutor()
	defer e.Shutdown()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)
		ok := e.Submit(func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
		assert.True(t, ok)
	}
	wg.Wait()

	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestExecutorSubmitNil(t *testing.T) {
	e := NewExecutor()
	defer e.Shutdown()
	assert.False(t, e.Submit(nil))
}

func TestExecutorShutdown(t *testing.T) {
	e := NewExecutor()

	started := make(chan struct{})
	release := make(chan struct{})
	e.Submit(func() {
		close(started)
		<-release
	})
	<-started

	// Queued behind the in-flight task; abandoned on shutdown.
	abandoned := false
	e.Submit(func() { abandoned = true })

	done := make(chan struct{})
	go func() {
		e.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("shutdown returned while a task was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown never returned")
	}

	assert.False(t, abandoned, "queued task should have been abandoned")
	assert.False(t, e.Submit(func() {}), "submit after shutdown must report false")

	e.Shutdown() // second call is a no-op
}
