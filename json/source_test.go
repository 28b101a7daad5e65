package json_test

import (
	stdjson "encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/json"
	"github.com/pilosa/musiclake/test"
)

type stringReader struct {
	*strings.Reader
	name   string
	closed *int
}

func (s stringReader) Name() string { return s.name }
func (s stringReader) Close() error { *s.closed++; return nil }

type stringsRawSource struct {
	docs   []string
	closed int
}

func (s *stringsRawSource) NextReader() (musiclake.NamedReadCloser, error) {
	if len(s.docs) == 0 {
		return nil, io.EOF
	}
	doc := s.docs[0]
	s.docs = s.docs[1:]
	return stringReader{Reader: strings.NewReader(doc), name: "doc", closed: &s.closed}, nil
}

func TestSourceFromRawSource(t *testing.T) {
	rs := &stringsRawSource{docs: []string{
		`{"num_songs": 1, "year": 0}`,
		``,
		"{\"ts\": 1541105830796}\n{\"ts\": 1541106106796}\n",
	}}
	src := json.NewSourceFromRawSource(rs)
	var got []interface{}
	for {
		rec, err := src.Record()
		if err == io.EOF {
			break
		}
		test.ErrNil(t, err, "Record")
		got = append(got, rec)
	}
	test.MustBe(t, []interface{}{
		map[string]interface{}{"num_songs": stdjson.Number("1"), "year": stdjson.Number("0")},
		map[string]interface{}{"ts": stdjson.Number("1541105830796")},
		map[string]interface{}{"ts": stdjson.Number("1541106106796")},
	}, got)
	test.MustBe(t, 3, rs.closed, "every reader closed")
}

func TestSourceFromRawSourceBadJSON(t *testing.T) {
	rs := &stringsRawSource{docs: []string{`{"title": `}}
	_, err := json.NewSourceFromRawSource(rs).Record()
	if err == nil || err == io.EOF {
		t.Fatalf("expected decode error, got %v", err)
	}
	if !strings.Contains(err.Error(), "decoding json from doc") {
		t.Fatalf("unexpected error: %v", err)
	}
}
