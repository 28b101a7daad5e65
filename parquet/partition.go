package parquet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pilosa/musiclake"
	"github.com/pkg/errors"
)

// DefaultPartition is the directory value used for a null or empty
// partition value.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}

// escapePathName escapes s for use as a Hive style partition path segment.
func escapePathName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// unescapePathName reverses escapePathName. Malformed escapes are kept as
// they are.
func unescapePathName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(n))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// formatPartition renders a partition value as a path segment value.
func formatPartition(v interface{}) string {
	var s string
	switch v := v.(type) {
	case nil:
		return DefaultPartition
	case string:
		s = v
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		s = strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		s = v.UTC().Format("2006-01-02 15:04:05")
	default:
		s = fmt.Sprint(v)
	}
	if s == "" {
		return DefaultPartition
	}
	return escapePathName(s)
}

// parsePartition converts a path segment value back to typ.
func parsePartition(typ musiclake.Type, s string) (interface{}, error) {
	if s == DefaultPartition {
		return nil, nil
	}
	s = unescapePathName(s)
	switch typ {
	case musiclake.String:
		return s, nil
	case musiclake.Integer:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing integer partition '%s'", s)
		}
		return int32(n), nil
	case musiclake.Long:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing long partition '%s'", s)
		}
		return n, nil
	case musiclake.Double:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing double partition '%s'", s)
		}
		return f, nil
	case musiclake.Timestamp:
		t, err := time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing timestamp partition '%s'", s)
		}
		return t.UTC(), nil
	}
	return nil, errors.Errorf("unsupported partition type %v", typ)
}

// partitionDir returns the col=val/... directory for a row, or "" when there
// are no partition columns.
func partitionDir(names []string, idxs []int, row musiclake.Row) string {
	segs := make([]string, len(idxs))
	for i, idx := range idxs {
		segs[i] = escapePathName(names[i]) + "=" + formatPartition(row[idx])
	}
	return strings.Join(segs, "/")
}
