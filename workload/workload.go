// Package workload drives a scheduler with random block traffic from
// many goroutines, the way a process full of independent callers would.
package workload

import (
	"io"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"

	"github.com/nnsgmsone/damrey/logger"

	"github.com/mutua/seekq/storage/device"
	"github.com/mutua/seekq/storage/disk"
	"github.com/mutua/seekq/util"
)

type Generator struct {
	Threads   int
	Ops       int
	Seed      int64
	LogWriter io.Writer
}

// Record is what a workload write stamps into its block, so a later
// read can tell which operation last touched it.
type Record struct {
	Thread int
	Op     int
	Block  int
}

type Stats struct {
	Reads  int64
	Writes int64
}

// Run issues Threads*Ops blocking operations against s and returns the
// totals. Any device failure is fatal: the generator models callers
// that have no recovery path.
func (g *Generator) Run(s *disk.DiskScheduler) Stats {
	w := g.LogWriter
	if w == nil {
		w = os.Stderr
	}
	log := logger.New(w, "workload")

	nblocks := s.BlockCount()
	var stats Stats
	var wg sync.WaitGroup

	for t := 0; t < g.Threads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(g.Seed + int64(t)))
			buf := make([]byte, device.BLOCK_SIZE)

			for op := 0; op < g.Ops; op++ {
				block := rng.Intn(nblocks)

				if rng.Intn(2) == 0 {
					if err := s.Read(block, buf); err != nil {
						log.Fatalf("read block %d failed: %v\n", block, err)
					}
					atomic.AddInt64(&stats.Reads, 1)
					continue
				}

				data, err := util.ToByteSlice(Record{Thread: t, Op: op, Block: block}, device.BLOCK_SIZE)
				if err != nil {
					log.Fatalf("encoding record failed: %v\n", err)
				}
				if err := s.Write(block, data); err != nil {
					log.Fatalf("write block %d failed: %v\n", block, err)
				}
				atomic.AddInt64(&stats.Writes, 1)
			}
		}(t)
	}

	wg.Wait()
	return stats
}
