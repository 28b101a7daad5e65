package parquet

import (
	"testing"

	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/test"
)

func TestEscapePathName(t *testing.T) {
	for in, exp := range map[string]string{
		"AR5E44Z1187B9A1D74": "AR5E44Z1187B9A1D74",
		"a/b":                "a%2Fb",
		"x=y:z":              "x%3Dy%3Az",
		"100%":               "100%25",
		"tab\there":          "tab%09here",
		"São Paulo":          "São Paulo",
	} {
		got := escapePathName(in)
		test.MustBe(t, exp, got, in)
		test.MustBe(t, in, unescapePathName(got), "round trip "+in)
	}
}

func TestParsePartition(t *testing.T) {
	v, err := parsePartition(musiclake.Integer, "1997")
	test.ErrNil(t, err, "integer")
	test.MustBe(t, int32(1997), v)

	v, err = parsePartition(musiclake.String, DefaultPartition)
	test.ErrNil(t, err, "default")
	test.MustBe(t, nil, v)

	v, err = parsePartition(musiclake.String, "AR%2F1")
	test.ErrNil(t, err, "escaped")
	test.MustBe(t, "AR/1", v)

	if _, err := parsePartition(musiclake.Integer, "x"); err == nil {
		t.Fatal("expected error parsing non-integer")
	}
	test.MustBe(t, DefaultPartition, formatPartition(""))
	test.MustBe(t, "11", formatPartition(int32(11)))
}
