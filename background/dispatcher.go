package background

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	// DefaultWorkers is the number of goroutines publishing events.
	DefaultWorkers = 3
	// DefaultBuffer is how many events may wait for a worker.
	DefaultBuffer = 64

	publishTimeout = 5 * time.Second
)

// Dispatcher queues events and publishes them from a fixed pool of workers.
type Dispatcher struct {
	publisher Publisher
	queue     chan Event
	wg        sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher starts workers goroutines publishing to p.
func NewDispatcher(p Publisher, workers, buffer int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	d := &Dispatcher{
		publisher: p,
		queue:     make(chan Event, buffer),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	log.Printf("Event dispatcher started with %d workers", workers)
	return d
}

func (d *Dispatcher) work(workerID int) {
	defer d.wg.Done()
	for e := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := d.publisher.Publish(ctx, e); err != nil {
			log.Printf("Event worker %d: failed to publish %s: %v", workerID, e.Subject, err)
		}
		cancel()
	}
}

// Enqueue hands e to the workers without blocking. It reports false when e was dropped
// because the queue is full or the dispatcher has stopped.
func (d *Dispatcher) Enqueue(e Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		log.Printf("Event dispatcher stopped, dropping %s", e.Subject)
		return false
	}
	select {
	case d.queue <- e:
		return true
	default:
		log.Printf("Event queue full, dropping %s", e.Subject)
		return false
	}
}

// Stop refuses new events, waits until the queued ones are published and closes the
// publisher. It is safe to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	if err := d.publisher.Close(); err != nil {
		log.Printf("Event publisher close failed: %v", err)
	}
	log.Println("Event dispatcher stopped")
}
