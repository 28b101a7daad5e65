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

package s3

import (
	"context"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/config"
	"github.com/pkg/errors"
)

// IsURL reports whether root names an S3 location rather than a local path.
func IsURL(root string) bool {
	return strings.HasPrefix(root, "s3://") || strings.HasPrefix(root, "s3a://")
}

// ParseURL splits an s3:// or s3a:// URL into its bucket and key prefix. The
// prefix never starts with a slash and, unless empty, always ends with one.
func ParseURL(root string) (bucket, prefix string, err error) {
	u, err := url.Parse(root)
	if err != nil {
		return "", "", errors.Wrapf(err, "parsing '%s'", root)
	}
	if u.Scheme != "s3" && u.Scheme != "s3a" {
		return "", "", errors.Errorf("'%s' is not an s3 url", root)
	}
	if u.Host == "" {
		return "", "", errors.Errorf("no bucket in '%s'", root)
	}
	prefix = strings.TrimPrefix(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return u.Host, prefix, nil
}

// NewSession returns an AWS session using the static credentials in creds.
// Without an access key the SDK's default credential chain is used.
func NewSession(creds config.Credentials) (*session.Session, error) {
	cfg := &aws.Config{}
	if creds.Region != "" {
		cfg.Region = aws.String(creds.Region)
	}
	if creds.AccessKeyID != "" {
		cfg.Credentials = credentials.NewStaticCredentials(creds.AccessKeyID, creds.SecretAccessKey, "")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	return sess, nil
}

// NewClient returns an S3 client for creds.
func NewClient(creds config.Credentials) (s3iface.S3API, error) {
	sess, err := NewSession(creds)
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}

// literalPrefix returns the part of pattern before its first glob
// metacharacter, cut back to the last slash.
func literalPrefix(pattern string) string {
	i := strings.IndexAny(pattern, "*?[\\")
	if i < 0 {
		return pattern
	}
	return pattern[:strings.LastIndex(pattern[:i], "/")+1]
}

// RawSource is a musiclake.RawSource over the objects in a bucket whose keys
// match a glob pattern, in lexical key order.
type RawSource struct {
	bucket string

	s3      s3iface.S3API
	objects []string
	objIdx  *uint64
}

// NewRawSource lists the objects of bucket matching pattern. Wildcards in
// pattern match within one key segment, as with path.Match.
func NewRawSource(ctx context.Context, client s3iface.S3API, bucket, pattern string) (*RawSource, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, errors.Wrapf(err, "bad pattern '%s'", pattern)
	}
	idx := uint64(0)
	rs := &RawSource{
		bucket: bucket,
		s3:     client,
		objIdx: &idx,
	}
	keys, err := listKeys(ctx, client, bucket, literalPrefix(pattern))
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	for _, k := range keys {
		if ok, _ := path.Match(pattern, k); ok {
			rs.objects = append(rs.objects, k)
		}
	}
	return rs, nil
}

func listKeys(ctx context.Context, client s3iface.S3API, bucket, prefix string) ([]string, error) {
	var keys []string
	err := client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

type objReader struct {
	name string
	body io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

func (o *objReader) Name() string {
	return o.name
}

// NextReader implements musiclake.RawSource.
func (rs *RawSource) NextReader() (musiclake.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if idx >= uint64(len(rs.objects)) {
		return nil, io.EOF
	}
	key := rs.objects[idx]

	result, err := rs.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", key)
	}
	return &objReader{name: "s3://" + rs.bucket + "/" + key, body: result.Body}, nil
}
