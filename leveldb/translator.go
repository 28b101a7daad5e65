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

// Package leveldb provides a musiclake.Translator which persists its mapping
// in one leveldb database per frame, so song ids survive across runs.
package leveldb

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilosa/musiclake"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var _ musiclake.Translator = &Translator{}

// Keys of a frame database are an id prefix followed by the big endian id,
// or a value prefix followed by the value bytes.
var (
	idPrefix  = []byte("i/")
	valPrefix = []byte("v/")
)

func idKey(id uint64) []byte {
	key := make([]byte, len(idPrefix)+8)
	copy(key, idPrefix)
	binary.BigEndian.PutUint64(key[len(idPrefix):], id)
	return key
}

func valKey(val []byte) []byte {
	return append(append(make([]byte, 0, len(valPrefix)+len(val)), valPrefix...), val...)
}

// Translator keeps one FrameTranslator per frame under a directory.
type Translator struct {
	mu      sync.RWMutex
	dirname string
	frames  map[string]*FrameTranslator
}

// NewTranslator opens a Translator in dirname, eagerly opening frames.
// Other frames are opened on first use.
func NewTranslator(dirname string, frames ...string) (*Translator, error) {
	lt := &Translator{
		dirname: dirname,
		frames:  make(map[string]*FrameTranslator),
	}
	for _, frame := range frames {
		ft, err := NewFrameTranslator(dirname, frame)
		if err != nil {
			lt.Close()
			return nil, errors.Wrapf(err, "opening frame '%s'", frame)
		}
		lt.frames[frame] = ft
	}
	return lt, nil
}

type errorList []error

func (errs errorList) Error() string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Close closes every frame's database.
func (lt *Translator) Close() error {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	var errs errorList
	for f, ft := range lt.frames {
		if err := ft.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "frame '%s'", f))
		}
	}
	lt.frames = map[string]*FrameTranslator{}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (lt *Translator) frame(name string) (*FrameTranslator, error) {
	lt.mu.RLock()
	ft, ok := lt.frames[name]
	lt.mu.RUnlock()
	if ok {
		return ft, nil
	}
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if ft, ok := lt.frames[name]; ok {
		return ft, nil
	}
	ft, err := NewFrameTranslator(lt.dirname, name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening frame '%s'", name)
	}
	lt.frames[name] = ft
	return ft, nil
}

// Get implements musiclake.Translator. Values come back as []byte.
func (lt *Translator) Get(frame string, id uint64) (interface{}, error) {
	ft, err := lt.frame(frame)
	if err != nil {
		return nil, err
	}
	return ft.Get(id)
}

// GetID implements musiclake.Translator for []byte and string values.
func (lt *Translator) GetID(frame string, val interface{}) (uint64, error) {
	ft, err := lt.frame(frame)
	if err != nil {
		return 0, err
	}
	return ft.GetID(val)
}

// FrameTranslator maps the values of a single frame. Lookups of known values
// only read; allocating a new id is serialized.
type FrameTranslator struct {
	db *leveldb.DB

	mu   sync.Mutex
	next uint64
}

// NewFrameTranslator opens or creates the database for frame under dirname
// and resumes id allocation after the highest id already stored.
func NewFrameTranslator(dirname string, frame string) (*FrameTranslator, error) {
	if err := os.MkdirAll(dirname, 0700); err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	path := filepath.Join(dirname, frame)
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %s", path)
	}
	ft := &FrameTranslator{db: db}

	iter := db.NewIterator(util.BytesPrefix(idPrefix), nil)
	if iter.Last() {
		ft.next = binary.BigEndian.Uint64(iter.Key()[len(idPrefix):]) + 1
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "finding last id")
	}
	return ft, nil
}

// Close closes the frame's database.
func (ft *FrameTranslator) Close() error {
	return errors.Wrap(ft.db.Close(), "closing leveldb")
}

// Get returns the value mapped to id.
func (ft *FrameTranslator) Get(id uint64) (interface{}, error) {
	data, err := ft.db.Get(idKey(id), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching id %d", id)
	}
	return data, nil
}

// GetID returns the id of val, allocating the next one if val is new. The
// two directions of a new mapping are written in one batch.
func (ft *FrameTranslator) GetID(val interface{}) (uint64, error) {
	var b []byte
	switch v := val.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return 0, errors.Errorf("val needs to be string or byte slice, but is type: %T, val: '%v'", val, val)
	}
	vk := valKey(b)
	if id, ok, err := ft.lookup(vk); err != nil || ok {
		return id, err
	}

	ft.mu.Lock()
	defer ft.mu.Unlock()
	if id, ok, err := ft.lookup(vk); err != nil || ok {
		return id, err
	}
	id := ft.next
	batch := new(leveldb.Batch)
	batch.Put(idKey(id), b)
	batch.Put(vk, idKey(id)[len(idPrefix):])
	if err := ft.db.Write(batch, nil); err != nil {
		return 0, errors.Wrapf(err, "storing id %d", id)
	}
	ft.next++
	return id, nil
}

func (ft *FrameTranslator) lookup(vk []byte) (uint64, bool, error) {
	data, err := ft.db.Get(vk, nil)
	if err == leveldb.ErrNotFound {
		return 0, false, nil
	} else if err != nil {
		return 0, false, errors.Wrap(err, "reading value")
	}
	return binary.BigEndian.Uint64(data), true, nil
}
