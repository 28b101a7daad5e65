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

// Package kafka reads an event log from a Kafka topic. A Source is bounded:
// it reads every partition from its oldest offset up to the high-water mark
// observed when the Source was opened, then returns io.EOF.
package kafka

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"sort"
	"time"

	"github.com/Shopify/sarama"
	"github.com/pilosa/musiclake"
	"github.com/pkg/errors"
)

// offsetClient is the part of sarama.Client a Source uses to find the bounds
// of each partition.
type offsetClient interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partitionID int32, time int64) (int64, error)
	Close() error
}

// Source implements the musiclake.Source interface using a kafka topic as a
// data source. Every message value must hold one JSON object.
type Source struct {
	Hosts   []string
	Topic   string
	Timeout time.Duration
	Log     musiclake.Logger

	// Compacted ends a partition cleanly when no message arrives within
	// Timeout. Compaction can remove the offsets just below the high-water
	// mark, so the last offset recorded at open may never be delivered.
	Compacted bool

	client   offsetClient
	consumer sarama.Consumer
	parts    []*partition
	cur      int
	records  int
}

type partition struct {
	id  int32
	pc  sarama.PartitionConsumer
	end int64
}

// NewSource gets a new Source
func NewSource() *Source {
	return &Source{
		Hosts:   []string{"localhost:9092"},
		Topic:   "log_data",
		Timeout: 30 * time.Second,
		Log:     musiclake.NopLogger{},
	}
}

// Open connects to the brokers and starts a consumer on every non-empty
// partition of the topic.
func (s *Source) Open() error {
	sarama.Logger = log.New(ioutil.Discard, "", 0)
	config := sarama.NewConfig()
	config.Version = sarama.V0_10_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	client, err := sarama.NewClient(s.Hosts, config)
	if err != nil {
		return errors.Wrap(err, "getting new client")
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		client.Close()
		return errors.Wrap(err, "getting new consumer")
	}
	return s.open(client, consumer)
}

func (s *Source) open(client offsetClient, consumer sarama.Consumer) error {
	s.client, s.consumer = client, consumer
	if s.Log == nil {
		s.Log = musiclake.NopLogger{}
	}
	ids, err := client.Partitions(s.Topic)
	if err != nil {
		s.Close()
		return errors.Wrapf(err, "listing partitions of %s", s.Topic)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		oldest, err := client.GetOffset(s.Topic, id, sarama.OffsetOldest)
		if err != nil {
			s.Close()
			return errors.Wrapf(err, "getting oldest offset of %s/%d", s.Topic, id)
		}
		newest, err := client.GetOffset(s.Topic, id, sarama.OffsetNewest)
		if err != nil {
			s.Close()
			return errors.Wrapf(err, "getting newest offset of %s/%d", s.Topic, id)
		}
		if newest <= oldest {
			s.Log.Debugf("skipping empty partition %s/%d", s.Topic, id)
			continue
		}
		pc, err := consumer.ConsumePartition(s.Topic, id, oldest)
		if err != nil {
			s.Close()
			return errors.Wrapf(err, "consuming %s/%d", s.Topic, id)
		}
		s.Log.Debugf("reading %s/%d offsets [%d, %d)", s.Topic, id, oldest, newest)
		s.parts = append(s.parts, &partition{id: id, pc: pc, end: newest})
	}
	return nil
}

// Record returns the decoded value of the next kafka message. Partitions are
// read one after another in id order.
func (s *Source) Record() (interface{}, error) {
	if s.cur >= len(s.parts) {
		return nil, io.EOF
	}
	p := s.parts[s.cur]
	select {
	case msg, ok := <-p.pc.Messages():
		if !ok {
			return nil, errors.Errorf("messages channel of %s/%d closed", s.Topic, p.id)
		}
		if msg.Offset >= p.end {
			// Offsets below end were compacted away; msg arrived after open.
			if err := s.endPartition(p); err != nil {
				return nil, err
			}
			return s.Record()
		}
		if msg.Offset+1 >= p.end {
			if err := s.endPartition(p); err != nil {
				return nil, err
			}
		}
		var rec map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(msg.Value))
		dec.UseNumber()
		if err := dec.Decode(&rec); err != nil {
			return nil, errors.Wrapf(err, "decoding json at %s/%d offset %d", s.Topic, p.id, msg.Offset)
		}
		s.records++
		return rec, nil
	case err := <-p.pc.Errors():
		return nil, errors.Wrapf(err, "consuming %s/%d", s.Topic, p.id)
	case <-time.After(s.Timeout):
		if !s.Compacted {
			return nil, errors.Errorf("timed out after %v waiting for %s/%d", s.Timeout, s.Topic, p.id)
		}
		s.Log.Debugf("no message on %s/%d for %v, ending it below offset %d", s.Topic, p.id, s.Timeout, p.end)
		if err := s.endPartition(p); err != nil {
			return nil, err
		}
		return s.Record()
	}
}

// endPartition closes the consumer of p and moves on to the next partition.
func (s *Source) endPartition(p *partition) error {
	s.cur++
	err := p.pc.Close()
	p.pc = nil
	return errors.Wrapf(err, "closing consumer of %s/%d", s.Topic, p.id)
}

// Close closes the underlying kafka consumers and client.
func (s *Source) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for _, p := range s.parts {
		if p.pc != nil {
			keep(p.pc.Close())
			p.pc = nil
		}
	}
	if s.consumer != nil {
		keep(s.consumer.Close())
		s.consumer = nil
	}
	if s.client != nil {
		keep(s.client.Close())
		s.client = nil
	}
	s.Log.Printf("read %d records from %s", s.records, s.Topic)
	return errors.Wrap(first, "closing kafka source")
}
