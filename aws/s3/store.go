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
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

// maxDeleteKeys is the most keys a single DeleteObjects call accepts.
const maxDeleteKeys = 1000

// Store is a musiclake.Store over the objects of a bucket below Prefix.
type Store struct {
	Client s3iface.S3API
	Bucket string
	Prefix string
}

// NewStore returns a Store for an s3:// or s3a:// root URL.
func NewStore(client s3iface.S3API, root string) (*Store, error) {
	bucket, prefix, err := ParseURL(root)
	if err != nil {
		return nil, err
	}
	return &Store{Client: client, Bucket: bucket, Prefix: prefix}, nil
}

// Put implements musiclake.Store.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return errors.Wrapf(err, "putting s3://%s/%s%s", s.Bucket, s.Prefix, key)
	}
	return nil
}

// Get implements musiclake.Store.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting s3://%s/%s%s", s.Bucket, s.Prefix, key)
	}
	return out.Body, nil
}

// List implements musiclake.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := listKeys(ctx, s.Client, s.Bucket, s.Prefix+prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "listing s3://%s/%s%s", s.Bucket, s.Prefix, prefix)
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, s.Prefix)
	}
	return keys, nil
}

// DeletePrefix implements musiclake.Store, deleting in batches of up to 1000
// keys.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += maxDeleteKeys {
		end := start + maxDeleteKeys
		if end > len(keys) {
			end = len(keys)
		}
		objs := make([]*s3.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objs = append(objs, &s3.ObjectIdentifier{Key: aws.String(s.Prefix + k)})
		}
		out, err := s.Client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.Bucket),
			Delete: &s3.Delete{Objects: objs, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return errors.Wrapf(err, "deleting under s3://%s/%s%s", s.Bucket, s.Prefix, prefix)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return errors.Errorf("deleting %s: %s", aws.StringValue(e.Key), aws.StringValue(e.Message))
		}
	}
	return nil
}
