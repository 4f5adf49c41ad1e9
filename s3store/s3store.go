/* Copyright © 2025 Mike Brown. All Rights Reserved.
 *
 * See LICENSE file at the root of this repository for license terms
 *
 * Package s3store provides a small S3-backed blob store with two consumers:
 * it implements httpcache.Cache so catalog fetches can be cached across
 * runs, and it persists diagnostic page snapshots captured when a
 * browser-driven registration attempt fails fatally.
 */
package s3store

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Store reads and writes blobs in a single Amazon S3 bucket.
type Store struct {
	// Config is the Amazon S3 configuration.
	Config aws.Config

	// Client is the s3 client the store uses. By default this is
	// initialized in Init() with the default Config, but callers can
	// optionally override this with their own s3 client if desired.
	Client *s3.Client

	// bucketName is the name of the S3 bucket. Example: "mybucket".
	bucketName string

	// gzip indicates whether cache entries should be gzipped in Set and
	// gunzipped in Get. If true, cache entry keys will have the suffix
	// ".gz" appended. Snapshots are always gzipped.
	gzip bool

	// logErrors controls whether errors should be logged or not
	logErrors bool

	// The context to specify when initiating s3 requests
	ctx context.Context
}

// New returns a Store with underlying storage in the specified S3 bucket.
// Callers should invoke Init() on the returned Store before use.
func New(ctxIn context.Context, bucketNameIn string, gzipIn bool,
	logErrorsIn bool) *Store {

	return &Store{
		ctx:        ctxIn,
		bucketName: bucketNameIn,
		gzip:       gzipIn,
		logErrors:  logErrorsIn,
	}
}

// Init loads AWS configuration and verifies the bucket is accessible.
// The default configuration sources are:
//   - Environment Variables (e.g. AWS_ACCESS_KEY_ID and AWS_SECRET_KEY)
//   - Shared Configuration and Shared Credentials files.
//
// To use different credentials, modify the returned Store's Config and
// Client fields.
func (st *Store) Init() error {
	var err error
	st.Config, err = config.LoadDefaultConfig(st.ctx)
	if err != nil {
		return fmt.Errorf("s3store.init: failed to load AWS config: %w", err)
	}
	st.Client = s3.NewFromConfig(st.Config)

	// Permission check: verify bucket exists and is accessible
	if _, err = st.Client.HeadBucket(st.ctx, &s3.HeadBucketInput{
		Bucket: aws.String(st.bucketName),
	}); err != nil {
		return fmt.Errorf("s3store.init: head bucket failed for %s: %w",
			st.bucketName, err)
	}

	return nil
}

// Get implements httpcache.Cache.
func (st *Store) Get(key string) ([]byte, bool) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(st.bucketName),
		Key:    aws.String(st.cacheKeyToObjectKey(key)),
	}

	resp, err := st.Client.GetObject(st.ctx, input)
	if err != nil {
		if st.logErrors {
			var apiErr smithy.APIError
			// no such key just indicates a cache miss
			if !(errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey") {
				log.Printf("s3store.get: failed to get object %v%v: %v",
					*input.Bucket, *input.Key, err)
			}
		}
		return []byte{}, false
	}
	defer resp.Body.Close()

	rdr := resp.Body
	if st.gzip {
		rdr, err = gzip.NewReader(rdr)
		if err != nil {
			if st.logErrors {
				log.Printf("s3store.get: failed to open compressed object %v%v: %v",
					*input.Bucket, *input.Key, err)
			}
			return nil, false
		}
		defer rdr.Close()
	}
	data, err := io.ReadAll(rdr)
	if err != nil {
		if st.logErrors {
			log.Printf("s3store.get: failed to read object %v%v: %v",
				*input.Bucket, *input.Key, err)
		}
	}

	return data, err == nil
}

// Set implements httpcache.Cache.
func (st *Store) Set(key string, data []byte) {
	if err := st.put(st.cacheKeyToObjectKey(key), data, st.gzip); err != nil {
		if st.logErrors {
			log.Printf("s3store.set: put failed for %v: %v", key, err)
		}
	}
}

// Delete implements httpcache.Cache.
func (st *Store) Delete(key string) {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(st.bucketName),
		Key:    aws.String(st.cacheKeyToObjectKey(key)),
	}

	_, err := st.Client.DeleteObject(st.ctx, input)
	if err != nil {
		if st.logErrors {
			log.Printf("s3store.delete: delete failed: %v", err)
		}
	}
}

// SaveSnapshot persists a diagnostic page snapshot under a timestamped key
// and returns an s3:// reference to it. Snapshots are write-once; name
// should identify the attempt (e.g. "race-362-dupont-browser").
func (st *Store) SaveSnapshot(name string, html []byte) (string, error) {
	objKey := fmt.Sprintf("snapshots/%s-%s.html.gz", name,
		time.Now().UTC().Format("20060102T150405.000"))

	if err := st.put(objKey, html, true); err != nil {
		return "", fmt.Errorf("s3store.snapshot: put failed for %v: %w",
			objKey, err)
	}

	return fmt.Sprintf("s3://%s/%s", st.bucketName, objKey), nil
}

func (st *Store) put(objKey string, data []byte, compress bool) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(st.bucketName),
		Key:    aws.String(objKey),
		Body:   bytes.NewReader(data),
	}

	if compress {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return fmt.Errorf("gzip write: %w", err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("gzip close: %w", err)
		}
		input.Body = &buf
		input.ContentEncoding = aws.String("gzip")
	}

	_, err := st.Client.PutObject(st.ctx, input)
	return err
}

func (st *Store) cacheKeyToObjectKey(key string) string {
	const pathPrefix = "webcache"

	h := md5.New()
	io.WriteString(h, key)
	objKey := fmt.Sprintf("/%v/%v", pathPrefix, hex.EncodeToString(h.Sum(nil)))
	if st.gzip {
		objKey += ".gz"
	}

	return objKey
}
