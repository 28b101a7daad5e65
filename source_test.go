// Copyright 2017-2019 Pilosa Corp.
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

package musiclake_test

import (
	"io"
	"sync"
	"testing"

	"github.com/pilosa/musiclake"
)

func TestSliceSource(t *testing.T) {
	source := musiclake.NewSliceSource(map[string]interface{}{"page": "Home"}, map[string]interface{}{"page": "NextSong"})
	for _, exp := range []string{"Home", "NextSong"} {
		rec, err := source.Record()
		if err != nil {
			t.Fatalf("getting record: %v", err)
		}
		if page := rec.(map[string]interface{})["page"]; page != exp {
			t.Fatalf("got page %v, expected %s", page, exp)
		}
	}
	if _, err := source.Record(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSliceSourceConcurrent(t *testing.T) {
	recs := make([]interface{}, 1000)
	for i := range recs {
		recs[i] = i
	}
	source := musiclake.NewSliceSource(recs...)
	seen := make([]int, len(recs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				rec, err := source.Record()
				if err == io.EOF {
					return
				} else if err != nil {
					t.Errorf("getting record: %v", err)
					return
				}
				mu.Lock()
				seen[rec.(int)]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	for i, n := range seen {
		if n != 1 {
			t.Fatalf("record %d read %d times", i, n)
		}
	}
}
