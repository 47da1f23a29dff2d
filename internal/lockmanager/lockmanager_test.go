package lockmanager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWriteLocksExclude(t *testing.T) {
	m := New()
	release := m.AcquireWrite("T")

	acquired := make(chan struct{})
	go func() {
		r := m.AcquireWrite("T")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second writer acquired lock while first held it")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	<-acquired
}

func TestReadersCoexist(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	var activeReaders int32
	var mu sync.Mutex
	maxObserved := 0

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := m.AcquireRead("T")
			mu.Lock()
			activeReaders++
			if int(activeReaders) > maxObserved {
				maxObserved = int(activeReaders)
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			activeReaders--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Greater(t, maxObserved, 1)
}

func TestLocksAreIndependentPerTable(t *testing.T) {
	m := New()
	releaseA := m.AcquireWrite("A")
	releaseB := m.AcquireWrite("B")
	releaseA()
	releaseB()
}
