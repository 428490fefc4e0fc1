package disk

import (
	"sync"

	"github.com/mutua/seekq/storage/device"
	"github.com/mutua/seekq/util"
)

// NewScheduler starts a scheduler servicing dev with the given policy.
// The service goroutine runs until Close is called.
func NewScheduler(dev Device, mode Mode) *DiskScheduler {
	ds := &DiskScheduler{
		dev:    dev,
		mode:   mode,
		cursor: cursor{block: 0, dir: 1},
		done:   make(chan struct{}),
	}
	ds.wake = sync.NewCond(&ds.mu)

	go ds.run()
	return ds
}

// Open creates or opens a file-backed device and starts a scheduler
// that owns it. Closing the scheduler closes the device.
func Open(path string, nblocks int, mode Mode) (*DiskScheduler, error) {
	dev, err := device.Open(path, nblocks)
	if err != nil {
		return nil, err
	}

	ds := NewScheduler(dev, mode)
	ds.owned = dev
	return ds, nil
}

func (ds *DiskScheduler) BlockCount() int {
	return ds.dev.BlockCount()
}

// Read fills buf with the contents of the given block. It blocks until
// the scheduler has serviced this request, which may be reordered
// behind later arrivals depending on the policy.
func (ds *DiskScheduler) Read(block int, buf []byte) error {
	return ds.submit(&request{block: block, data: buf, done: make(chan error, 1)})
}

// Write stores buf to the given block. The buffer is only read, and
// only by the service goroutine; it must not be mutated until Write
// returns. Blocks until the request has been serviced.
func (ds *DiskScheduler) Write(block int, buf []byte) error {
	return ds.submit(&request{write: true, block: block, data: buf, done: make(chan error, 1)})
}

// Close stops accepting requests, waits for the service goroutine to
// drain everything already queued, and releases the device if this
// scheduler opened it. Only the first call closes the device; later
// calls wait for the drain and return nil.
func (ds *DiskScheduler) Close() error {
	ds.mu.Lock()
	first := !ds.closed
	if first {
		ds.closed = true
		ds.wake.Signal()
	}
	ds.mu.Unlock()

	<-ds.done

	if first && ds.owned != nil {
		return ds.owned.Close()
	}
	return nil
}

func (ds *DiskScheduler) submit(req *request) error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return util.NewSchedulerClosed()
	}
	ds.queue = append(ds.queue, req)
	ds.wake.Signal()
	ds.mu.Unlock()

	// The queue holds the caller's own buffer, so the service goroutine
	// works directly on it; all that comes back here is the result.
	return <-req.done
}

// run is the service loop: wait for work, pick one request by policy,
// unlink it, do the I/O outside the lock, and complete the request.
func (ds *DiskScheduler) run() {
	for {
		ds.mu.Lock()
		for len(ds.queue) == 0 && !ds.closed {
			ds.wake.Wait()
		}
		if len(ds.queue) == 0 {
			ds.mu.Unlock()
			close(ds.done)
			return
		}

		i := ds.selectNext()
		req := ds.queue[i]
		ds.queue = append(ds.queue[:i], ds.queue[i+1:]...)
		ds.mu.Unlock()

		var err error
		if req.write {
			err = ds.dev.WriteBlock(req.block, req.data)
		} else {
			err = ds.dev.ReadBlock(req.block, req.data)
		}
		req.done <- err
	}
}

// Device is the block-device surface the scheduler needs. Buffers are
// always exactly one block long.
type Device interface {
	BlockCount() int
	ReadBlock(block int, buf []byte) error
	WriteBlock(block int, buf []byte) error
}

type DiskScheduler struct {
	dev   Device
	mode  Mode
	owned *device.FileDevice

	mu     sync.Mutex
	wake   *sync.Cond
	queue  []*request
	cursor cursor
	closed bool
	done   chan struct{}
}

type request struct {
	write bool
	block int
	data  []byte
	done  chan error
}
