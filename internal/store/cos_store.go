package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// COSConfig configures a Tencent Cloud COS-backed ParamStore, used when a
// host wants parameter snapshots to survive past the local machine (e.g.
// handing a snapshot to a subprocess batch-training worker running on a
// different node, per spec §6.3's atomic-swap handoff).
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // e.g. "myqcloud.com"
	Scheme    string // "https" or "http"
	Prefix    string // object key prefix, e.g. "shgat/params/"
}

// COSStore implements ParamStore on top of Tencent Cloud Object Storage.
// It does not implement ExampleStore: bulk training examples belong in
// SQLiteStore, object storage is only cost-effective for the comparatively
// small, infrequently-written parameter blob.
type COSStore struct {
	client *cos.Client
	prefix string
}

// NewCOSStore constructs a COSStore from cfg.
func NewCOSStore(cfg *COSConfig) (*COSStore, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("store: cos bucket and region are required")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("store: cos credentials are required")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	bucketURL, err := url.Parse(fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("store: parse cos bucket url: %w", err)
	}
	serviceURL, err := url.Parse(fmt.Sprintf("%s://cos.%s.%s", scheme, cfg.Region, domain))
	if err != nil {
		return nil, fmt.Errorf("store: parse cos service url: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL:  bucketURL,
		ServiceURL: serviceURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSStore{client: client, prefix: cfg.Prefix}, nil
}

func (s *COSStore) objectKey(key string) string {
	return s.prefix + key + ".shgat"
}

// SaveParams uploads blob as the object for key, overwriting any prior
// object of the same name.
func (s *COSStore) SaveParams(ctx context.Context, key string, blob []byte) error {
	_, err := s.client.Object.Put(ctx, s.objectKey(key), bytes.NewReader(blob), nil)
	if err != nil {
		return fmt.Errorf("store: upload params to cos: %w", err)
	}
	return nil
}

// LoadParams downloads the object for key.
func (s *COSStore) LoadParams(ctx context.Context, key string) ([]byte, error) {
	objKey := s.objectKey(key)
	exists, err := s.client.Object.IsExist(ctx, objKey)
	if err != nil {
		return nil, fmt.Errorf("store: check cos object existence: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	resp, err := s.client.Object.Get(ctx, objKey, nil)
	if err != nil {
		return nil, fmt.Errorf("store: download params from cos: %w", err)
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("store: read cos response body: %w", err)
	}
	return blob, nil
}
