package transport

import (
	"sync"
	"sync/atomic"

	"github.com/petal-labs/toolscope"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
)

type dispatcherConfig struct {
	workers   int
	queueSize int
	deliver   func(rec toolscope.Record)
	onDrop    func(rec toolscope.Record)
}

// dispatcher runs a fixed worker pool over a bounded queue. Enqueue never
// blocks: when the queue is full the record is dropped and counted. This
// keeps a slow or down collector from throttling tool throughput.
type dispatcher struct {
	queue     chan toolscope.Record
	deliver   func(rec toolscope.Record)
	onDrop    func(rec toolscope.Record)
	dropCount atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func newDispatcher(cfg dispatcherConfig) *dispatcher {
	workers := cfg.workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	queueSize := cfg.queueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	d := &dispatcher{
		queue:   make(chan toolscope.Record, queueSize),
		deliver: cfg.deliver,
		onDrop:  cfg.onDrop,
		done:    make(chan struct{}),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.run()
	}
	return d
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case rec := <-d.queue:
			d.deliver(rec)
		}
	}
}

func (d *dispatcher) enqueue(rec toolscope.Record) {
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.queue <- rec:
	default:
		d.dropCount.Add(1)
		if d.onDrop != nil {
			d.onDrop(rec)
		}
	}
}

func (d *dispatcher) dropped() uint64 {
	return d.dropCount.Load()
}

func (d *dispatcher) close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}
