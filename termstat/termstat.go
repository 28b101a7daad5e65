// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package termstat provides a stats implementation which periodically prints
// a one line summary of a run to the given writer. It is meant for watching
// a run from a terminal. Counters and gauges are shown; histograms, sets and
// timings are ignored.
package termstat

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Collector collects stats and prints them to the terminal.
type Collector struct {
	lock    sync.Mutex
	counts  map[string]int64
	gauges  map[string]float64
	changed bool
	start   time.Time
	out     io.Writer

	done chan struct{}
	wg   sync.WaitGroup
}

// NewCollector returns a Collector which rewrites its line on out every
// interval until it is closed.
func NewCollector(out io.Writer, interval time.Duration) *Collector {
	c := &Collector{
		counts: make(map[string]int64),
		gauges: make(map[string]float64),
		start:  time.Now(),
		out:    out,
		done:   make(chan struct{}),
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				c.write(false)
			case <-c.done:
				return
			}
		}
	}()
	return c
}

// Close stops printing, after printing the final values on their own line.
func (c *Collector) Close() error {
	close(c.done)
	c.wg.Wait()
	c.write(true)
	return nil
}

// Count adds value to the named stat at the specified rate.
func (c *Collector) Count(name string, value int64, rate float64, tags ...string) {
	if rate < 1 && rand.Float64() > rate {
		return
	}
	c.lock.Lock()
	c.counts[name] += value
	c.changed = true
	c.lock.Unlock()
}

// Gauge records the latest value of the named stat.
func (c *Collector) Gauge(name string, value float64, rate float64, tags ...string) {
	c.lock.Lock()
	c.gauges[name] = value
	c.changed = true
	c.lock.Unlock()
}

// Histogram does nothing.
func (c *Collector) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set does nothing.
func (c *Collector) Set(name string, value string, rate float64, tags ...string) {}

// Timing does nothing.
func (c *Collector) Timing(name string, value time.Duration, rate float64, tags ...string) {}

// write prints every stat in name order, prefixed by the time since the
// collector started.
func (c *Collector) write(final bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.changed && !final {
		return
	}
	c.changed = false
	names := make([]string, 0, len(c.counts)+len(c.gauges))
	vals := make(map[string]string, cap(names))
	for name, v := range c.counts {
		names = append(names, name)
		vals[name] = strconv.FormatInt(v, 10)
	}
	for name, v := range c.gauges {
		names = append(names, name)
		vals[name] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	sort.Strings(names)

	sb := strings.Builder{}
	fmt.Fprintf(&sb, "\r[%v]", time.Since(c.start).Round(time.Second))
	for _, name := range names {
		fmt.Fprintf(&sb, " %s: %s", name, vals[name])
	}
	if final {
		sb.WriteString("\n")
	}
	fmt.Fprint(c.out, sb.String())
}
