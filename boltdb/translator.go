// Package boltdb provides a musiclake.Translator which persists its mapping
// in a boltdb file, so song ids stay stable from one run to the next.
package boltdb

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var (
	idBucket  = []byte("idKey")
	valBucket = []byte("valKey")
)

// Translator is a musiclake.Translator which stores the two way val/id
// mapping in boltdb. It only accepts []byte values.
type Translator struct {
	Db     *bolt.DB
	fmu    sync.RWMutex
	frames map[string]struct{}
}

// Close syncs and closes the underlying boltdb.
func (bt *Translator) Close() error {
	err := bt.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return bt.Db.Close()
}

// NewTranslator opens or creates the boltdb file at filename, ensuring a
// bucket for each of frames.
func NewTranslator(filename string, frames ...string) (bt *Translator, err error) {
	bt = &Translator{
		frames: make(map[string]struct{}),
	}
	bt.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	bt.Db.MaxBatchDelay = 400 * time.Microsecond
	err = bt.Db.Update(func(tx *bolt.Tx) error {
		ib, err := tx.CreateBucketIfNotExists(idBucket)
		if err != nil {
			return errors.Wrap(err, "creating idKey bucket")
		}
		vb, err := tx.CreateBucketIfNotExists(valBucket)
		if err != nil {
			return errors.Wrap(err, "creating valKey bucket")
		}
		for _, frame := range frames {
			_, _, err = bt.addFrame(ib, vb, frame)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		bt.Db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return bt, nil
}

func (bt *Translator) addFrame(ib, vb *bolt.Bucket, frame string) (fib, fvb *bolt.Bucket, err error) {
	fib, err = ib.CreateBucketIfNotExists([]byte(frame))
	if err != nil {
		return nil, nil, errors.Wrap(err, "adding "+frame+" to id bucket")
	}
	fvb, err = vb.CreateBucketIfNotExists([]byte(frame))
	if err != nil {
		return nil, nil, errors.Wrap(err, "adding "+frame+" to val bucket")
	}
	bt.fmu.Lock()
	bt.frames[frame] = struct{}{}
	bt.fmu.Unlock()

	return fib, fvb, nil
}

func (bt *Translator) ensureFrame(frame string) error {
	bt.fmu.RLock()
	_, ok := bt.frames[frame]
	bt.fmu.RUnlock()
	if ok {
		return nil
	}
	return bt.Db.Update(func(tx *bolt.Tx) error {
		_, _, err := bt.addFrame(tx.Bucket(idBucket), tx.Bucket(valBucket), frame)
		return err
	})
}

func idKey(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

// Get returns the value previously mapped to id by GetID. The value is
// always a []byte.
func (bt *Translator) Get(frame string, id uint64) (interface{}, error) {
	if err := bt.ensureFrame(frame); err != nil {
		return nil, errors.Wrap(err, "adding frame in Get")
	}
	var val []byte
	err := bt.Db.View(func(tx *bolt.Tx) error {
		fib := tx.Bucket(idBucket).Bucket([]byte(frame))
		if v := fib.Get(idKey(id)); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading id")
	}
	if val == nil {
		return nil, errors.Errorf("unknown id %d in frame '%s'", id, frame)
	}
	return val, nil
}

// GetID maps val, which must be a []byte, to an id. Ids in a frame start at
// zero and survive reopening the file.
func (bt *Translator) GetID(frame string, val interface{}) (id uint64, err error) {
	if err := bt.ensureFrame(frame); err != nil {
		return 0, errors.Wrap(err, "adding frame in GetID")
	}

	bsval, ok := val.([]byte)
	if !ok {
		return 0, errors.Errorf("val %v of type %T for frame %v not supported by boltdb.Translator - must be a []byte", val, val, frame)
	}

	// look up to see if this val is already mapped to an id
	var ret []byte
	err = bt.Db.View(func(tx *bolt.Tx) error {
		ret = tx.Bucket(valBucket).Bucket([]byte(frame)).Get(bsval)
		if ret != nil {
			id = binary.BigEndian.Uint64(ret)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "looking up value")
	}
	if ret != nil {
		return id, nil
	}

	// get new id, and map it in both directions
	err = bt.Db.Batch(func(tx *bolt.Tx) error {
		fib := tx.Bucket(idBucket).Bucket([]byte(frame))
		fvb := tx.Bucket(valBucket).Bucket([]byte(frame))
		if existing := fvb.Get(bsval); existing != nil {
			id = binary.BigEndian.Uint64(existing)
			return nil
		}
		seq, err := fib.NextSequence()
		if err != nil {
			return err
		}
		id = seq - 1
		keybytes := idKey(id)
		err = fib.Put(keybytes, bsval)
		if err != nil {
			return errors.Wrap(err, "inserting into idKey bucket")
		}
		err = fvb.Put(bsval, keybytes)
		if err != nil {
			return errors.Wrap(err, "inserting into valKey bucket")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
