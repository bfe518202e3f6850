/*
	This file implements a monitor of tile I/O.  Fetchers and writers report the
	bytes they move over channels, and the monitor keeps per-second tallies that can
	be logged while a long crop or precompute runs.
*/

package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// MonitorBuffer is the number of reports queued before new reports are dropped.
const MonitorBuffer = 10000

// Rates are the I/O tallies of the last complete interval.
type Rates struct {
	BytesRead    int
	BytesWritten int
	Reads        int
	Writes       int
}

func (r Rates) String() string {
	return fmt.Sprintf("read %s in %d tiles, wrote %s in %d chunks",
		humanize.Bytes(uint64(r.BytesRead)), r.Reads, humanize.Bytes(uint64(r.BytesWritten)), r.Writes)
}

func (r *Rates) add(x Rates) {
	r.BytesRead += x.BytesRead
	r.BytesWritten += x.BytesWritten
	r.Reads += x.Reads
	r.Writes += x.Writes
}

// Monitor tallies bytes read and written.  Reports are only counted while Run is
// active.
type Monitor struct {
	// Interval between tallies.  Defaults to one second.
	Interval time.Duration

	read    chan int
	written chan int

	access sync.Mutex
	last   Rates
	total  Rates
}

func NewMonitor() *Monitor {
	return &Monitor{
		Interval: time.Second,
		read:     make(chan int, MonitorBuffer),
		written:  make(chan int, MonitorBuffer),
	}
}

// Read reports a tile read of n bytes.  It never blocks.
func (m *Monitor) Read(n int) {
	if m == nil {
		return
	}
	select {
	case m.read <- n:
	default:
	}
}

// Written reports a chunk write of n bytes.  It never blocks.
func (m *Monitor) Written(n int) {
	if m == nil {
		return
	}
	select {
	case m.written <- n:
	default:
	}
}

// Rates returns the tallies of the last complete interval.
func (m *Monitor) Rates() Rates {
	m.access.Lock()
	defer m.access.Unlock()
	return m.last
}

// Total returns the tallies since Run started, including the partial interval at
// which Run returned.
func (m *Monitor) Total() Rates {
	m.access.Lock()
	defer m.access.Unlock()
	return m.total
}

// Run tallies reports until the context is done.  If logEvery is positive, the
// throughput is logged at that period.
func (m *Monitor) Run(ctx context.Context, logEvery time.Duration) {
	interval := m.Interval
	if interval <= 0 {
		interval = time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	var logTick <-chan time.Time
	if logEvery > 0 {
		t := time.NewTicker(logEvery)
		defer t.Stop()
		logTick = t.C
	}

	var cur Rates
	for {
		select {
		case <-ctx.Done():
			m.drain(&cur)
			m.access.Lock()
			m.total.add(cur)
			m.access.Unlock()
			return
		case b := <-m.read:
			cur.BytesRead += b
			cur.Reads++
		case b := <-m.written:
			cur.BytesWritten += b
			cur.Writes++
		case <-tick.C:
			m.access.Lock()
			m.last = cur
			m.total.add(cur)
			m.access.Unlock()
			cur = Rates{}
		case <-logTick:
			mosaic.Infof("Last %s: %s\n", interval, m.Rates())
		}
	}
}

// drain adds any queued reports to cur.
func (m *Monitor) drain(cur *Rates) {
	for {
		select {
		case b := <-m.read:
			cur.BytesRead += b
			cur.Reads++
		case b := <-m.written:
			cur.BytesWritten += b
			cur.Writes++
		default:
			return
		}
	}
}

type monitoredFetcher struct {
	Fetcher
	m *Monitor
}

func (f monitoredFetcher) Fetch(ctx context.Context, key TileKey) ([]byte, error) {
	data, err := f.Fetcher.Fetch(ctx, key)
	if err == nil && data != nil {
		f.m.Read(len(data))
	}
	return data, err
}

// MonitorFetcher reports the size of every fetched tile to m.
func MonitorFetcher(f Fetcher, m *Monitor) Fetcher {
	return monitoredFetcher{Fetcher: f, m: m}
}
