package json

import (
	"encoding/json"
	"io"

	"github.com/pilosa/musiclake"
	"github.com/pkg/errors"
)

// Source is a musiclake.Source for reading a stream of json objects, either
// one per line or concatenated.
type Source struct {
	dec *json.Decoder
}

// NewSource gets a new json source which will decode from the given reader.
// Numbers are decoded as json.Number so they can be coerced exactly.
func NewSource(r io.Reader) *Source {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Source{
		dec: dec,
	}
}

// Record implements musiclake.Source. It returns the next json object that
// can be decoded from the reader. It is guaranteed to return a
// map[string]interface{} if there is no error.
func (s *Source) Record() (rec interface{}, err error) {
	var res map[string]interface{}
	err = s.dec.Decode(&res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type rawSourceSource struct {
	rs musiclake.RawSource

	cur musiclake.NamedReadCloser
	s   *Source
}

// NewSourceFromRawSource returns a Source which decodes every object from
// each reader of rs in turn, closing each reader once it is exhausted.
func NewSourceFromRawSource(rs musiclake.RawSource) musiclake.Source {
	return &rawSourceSource{rs: rs}
}

func (r *rawSourceSource) Record() (rec interface{}, err error) {
	for {
		if r.s == nil {
			reader, err := r.rs.NextReader()
			if err == io.EOF {
				return nil, err
			} else if err != nil {
				return nil, errors.Wrap(err, "getting next reader")
			}
			r.cur, r.s = reader, NewSource(reader)
		}
		rec, err = r.s.Record()
		if err == nil {
			return rec, nil
		}
		name := r.cur.Name()
		cerr := r.cur.Close()
		r.cur, r.s = nil, nil
		if err != io.EOF {
			return nil, errors.Wrapf(err, "decoding json from %s", name)
		}
		if cerr != nil {
			return nil, errors.Wrapf(cerr, "closing %s", name)
		}
	}
}
