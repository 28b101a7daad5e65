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

package kafka

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pilosa/musiclake"
	"github.com/pkg/errors"
)

type fakeClient struct {
	offsets map[int32][2]int64
	closed  bool
}

func (c *fakeClient) Partitions(topic string) ([]int32, error) {
	if topic != "log_data" {
		return nil, sarama.ErrUnknownTopicOrPartition
	}
	ids := make([]int32, 0, len(c.offsets))
	for id := range c.offsets {
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *fakeClient) GetOffset(topic string, id int32, t int64) (int64, error) {
	switch t {
	case sarama.OffsetOldest:
		return c.offsets[id][0], nil
	case sarama.OffsetNewest:
		return c.offsets[id][1], nil
	}
	return 0, errors.Errorf("unexpected offset time %d", t)
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

type fakeConsumer struct {
	sarama.Consumer
	parts  map[int32]*fakePartitionConsumer
	closed bool
}

func (c *fakeConsumer) ConsumePartition(topic string, id int32, offset int64) (sarama.PartitionConsumer, error) {
	pc, ok := c.parts[id]
	if !ok {
		return nil, sarama.ErrUnknownTopicOrPartition
	}
	pc.started = offset
	return pc, nil
}

func (c *fakeConsumer) Close() error {
	c.closed = true
	return nil
}

type fakePartitionConsumer struct {
	sarama.PartitionConsumer
	msgs    chan *sarama.ConsumerMessage
	errs    chan *sarama.ConsumerError
	started int64
	closed  bool
}

func newFakePartition(t *testing.T, id int32, first int64, values ...interface{}) *fakePartitionConsumer {
	pc := &fakePartitionConsumer{
		msgs:    make(chan *sarama.ConsumerMessage, len(values)+1),
		errs:    make(chan *sarama.ConsumerError, 1),
		started: -1,
	}
	for i, v := range values {
		var data []byte
		switch v := v.(type) {
		case string:
			data = []byte(v)
		default:
			var err error
			data, err = json.Marshal(v)
			if err != nil {
				t.Fatalf("marshaling: %v", err)
			}
		}
		pc.msgs <- &sarama.ConsumerMessage{Topic: "log_data", Partition: id, Offset: first + int64(i), Value: data}
	}
	return pc
}

func (pc *fakePartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return pc.msgs }

func (pc *fakePartitionConsumer) Errors() <-chan *sarama.ConsumerError { return pc.errs }

func (pc *fakePartitionConsumer) Close() error {
	pc.closed = true
	return nil
}

func event(page string, ts int64) map[string]interface{} {
	return map[string]interface{}{"page": page, "ts": ts, "userId": "7"}
}

func TestSourceReadsToHighWaterMark(t *testing.T) {
	p0 := newFakePartition(t, 0, 3, event("NextSong", 1), event("Home", 2))
	p1 := newFakePartition(t, 1, 0, event("NextSong", 3))
	p2 := newFakePartition(t, 2, 5)
	// a message past the high-water mark observed at open is never read.
	p1.msgs <- &sarama.ConsumerMessage{Partition: 1, Offset: 1, Value: []byte(`{"page":"late"}`)}

	client := &fakeClient{offsets: map[int32][2]int64{0: {3, 5}, 1: {0, 1}, 2: {5, 5}}}
	consumer := &fakeConsumer{parts: map[int32]*fakePartitionConsumer{0: p0, 1: p1, 2: p2}}

	src := NewSource()
	if err := src.open(client, consumer); err != nil {
		t.Fatalf("opening: %v", err)
	}
	if p0.started != 3 || p1.started != 0 {
		t.Fatalf("partitions started at %d and %d", p0.started, p1.started)
	}
	if p2.started != -1 {
		t.Fatalf("empty partition should not be consumed")
	}

	var pages []string
	for {
		rec, err := src.Record()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("reading: %v", err)
		}
		m := rec.(map[string]interface{})
		if _, ok := m["ts"].(json.Number); !ok {
			t.Fatalf("ts should decode as json.Number, got %T", m["ts"])
		}
		pages = append(pages, m["page"].(string))
	}
	if len(pages) != 3 || pages[0] != "NextSong" || pages[1] != "Home" || pages[2] != "NextSong" {
		t.Fatalf("unexpected pages %v", pages)
	}
	if !p0.closed || !p1.closed {
		t.Fatalf("finished partitions should be closed")
	}
	if err := src.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	if !consumer.closed || !client.closed {
		t.Fatalf("consumer and client should be closed")
	}
}

func TestSourceBadJSON(t *testing.T) {
	p0 := newFakePartition(t, 0, 0, "{not json")
	src := NewSource()
	err := src.open(&fakeClient{offsets: map[int32][2]int64{0: {0, 1}}}, &fakeConsumer{parts: map[int32]*fakePartitionConsumer{0: p0}})
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	if _, err := src.Record(); err == nil {
		t.Fatalf("expected decoding error")
	}
}

func TestSourceConsumerError(t *testing.T) {
	p0 := newFakePartition(t, 0, 0)
	p0.errs <- &sarama.ConsumerError{Topic: "log_data", Partition: 0, Err: sarama.ErrOffsetOutOfRange}
	src := NewSource()
	err := src.open(&fakeClient{offsets: map[int32][2]int64{0: {0, 4}}}, &fakeConsumer{parts: map[int32]*fakePartitionConsumer{0: p0}})
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	if _, err := src.Record(); err == nil {
		t.Fatalf("expected consumer error")
	}
}

func TestSourceTimeout(t *testing.T) {
	p0 := newFakePartition(t, 0, 0)
	src := NewSource()
	src.Timeout = 10 * time.Millisecond
	err := src.open(&fakeClient{offsets: map[int32][2]int64{0: {0, 1}}}, &fakeConsumer{parts: map[int32]*fakePartitionConsumer{0: p0}})
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	if _, err := src.Record(); err == nil {
		t.Fatalf("expected timeout")
	}
}

func TestSourceUnknownTopic(t *testing.T) {
	src := NewSource()
	src.Topic = "nope"
	client := &fakeClient{}
	err := src.open(client, &fakeConsumer{})
	if errors.Cause(err) != sarama.ErrUnknownTopicOrPartition {
		t.Fatalf("unexpected error %v", err)
	}
	if !client.closed {
		t.Fatalf("client should be closed after a failed open")
	}
}

func TestSourceCompactedTail(t *testing.T) {
	// offsets 2 to 5 were compacted away; 9 was produced after open.
	p0 := newFakePartition(t, 0, 0, event("NextSong", 1), event("NextSong", 2))
	p0.msgs <- &sarama.ConsumerMessage{Partition: 0, Offset: 9, Value: []byte(`{"page":"late"}`)}
	// offsets 1 to 3 were compacted away and nothing followed.
	p1 := newFakePartition(t, 1, 0, event("Home", 3))

	src := NewSource()
	src.Timeout = 10 * time.Millisecond
	src.Compacted = true
	client := &fakeClient{offsets: map[int32][2]int64{0: {0, 6}, 1: {0, 4}}}
	err := src.open(client, &fakeConsumer{parts: map[int32]*fakePartitionConsumer{0: p0, 1: p1}})
	if err != nil {
		t.Fatalf("opening: %v", err)
	}

	var pages []string
	for {
		rec, err := src.Record()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("reading: %v", err)
		}
		pages = append(pages, rec.(map[string]interface{})["page"].(string))
	}
	if len(pages) != 3 || pages[0] != "NextSong" || pages[1] != "NextSong" || pages[2] != "Home" {
		t.Fatalf("unexpected pages %v", pages)
	}
	if !p0.closed || !p1.closed {
		t.Fatalf("finished partitions should be closed")
	}
}

var _ musiclake.Source = NewSource()
