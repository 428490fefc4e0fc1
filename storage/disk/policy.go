package disk

type Mode int

const (
	// FIFO services requests strictly in arrival order.
	FIFO Mode = iota
	// SSTF services the pending request closest to the current head
	// position.
	SSTF
	// SCAN sweeps the head back and forth across the device, servicing
	// requests as it passes over their blocks.
	SCAN
)

// cursor is the head position the positional policies remember between
// selections. Each scheduler owns its own cursor, so independent
// schedulers never perturb each other's sweeps.
type cursor struct {
	block int
	dir   int // +1 sweeping up, -1 sweeping down
}

// selectNext picks the queue index of the request to service next and
// advances the cursor. Called with the scheduler lock held and a
// non-empty queue.
func (ds *DiskScheduler) selectNext() int {
	switch ds.mode {
	case SSTF:
		return selectSSTF(ds.queue, &ds.cursor, ds.dev.BlockCount())
	case SCAN:
		return selectSCAN(ds.queue, &ds.cursor, ds.dev.BlockCount())
	default:
		return 0
	}
}

// selectSSTF probes outward from the cursor at growing radius, trying
// block+r before block-r at every radius. Any in-range pending block is
// within nblocks-1 of the cursor, so the probe is bounded; a request
// for an out-of-range block falls back to the queue head and fails at
// the device instead of stalling the sweep.
func selectSSTF(queue []*request, cur *cursor, nblocks int) int {
	for r := 0; r < nblocks; r++ {
		if i := findBlock(queue, cur.block+r); i >= 0 {
			cur.block = queue[i].block
			return i
		}
		if i := findBlock(queue, cur.block-r); i >= 0 {
			cur.block = queue[i].block
			return i
		}
	}
	return 0
}

// selectSCAN walks the cursor one block at a time in its current
// direction, reversing at the ends of the device. The cursor keeps its
// position across selections, so consecutive picks continue the sweep.
// Not advancing past a match lets queued twins of the same block be
// serviced back to back.
func selectSCAN(queue []*request, cur *cursor, nblocks int) int {
	for steps := 0; steps <= 2*nblocks+2; steps++ {
		if i := findBlock(queue, cur.block); i >= 0 {
			return i
		}
		cur.block += cur.dir
		if cur.block > nblocks-1 {
			cur.block = nblocks - 1
			cur.dir = -1
		}
		if cur.block < 0 {
			cur.block = 0
			cur.dir = 1
		}
	}
	return 0
}

// findBlock returns the index of the earliest-arrived pending request
// for the given block, or -1.
func findBlock(queue []*request, block int) int {
	for i, req := range queue {
		if req.block == block {
			return i
		}
	}
	return -1
}
