package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	defaultUploadExpiry   = 15 * time.Minute
	defaultDownloadExpiry = 5 * time.Minute
	maxDownloadExpiry     = 15 * time.Minute
)

var (
	errNoSigner         = errors.New("storage: signer is required")
	errInvalidBucket    = errors.New("storage: bucket name is required")
	errInvalidObject    = errors.New("storage: object name is required")
	errMethodNotAllowed = errors.New("storage: HTTP method not allowed for intent")
	errContentType      = errors.New("storage: content type is required for uploads")
	errContentDenied    = errors.New("storage: content type not allowed")
	errExpiryTooLong    = errors.New("storage: expiry exceeds permitted maximum")
)

// Client generates signed URLs for catalogue and design assets backed by a Signer.
type Client struct {
	signer Signer
	bucket string
	scheme storage.SigningScheme
	now    func() time.Time
}

// ClientOption customises client behaviour.
type ClientOption func(*Client)

// WithSigningScheme overrides the signing scheme (defaults to V4).
func WithSigningScheme(scheme storage.SigningScheme) ClientOption {
	return func(c *Client) {
		if scheme != 0 {
			c.scheme = scheme
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewClient constructs a signed URL client bound to the assets bucket.
func NewClient(signer Signer, bucket string, opts ...ClientOption) (*Client, error) {
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errNoSigner
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}

	client := &Client{
		signer: signer,
		bucket: bucket,
		scheme: storage.SigningSchemeV4,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// UploadOptions control upload signed URL generation.
type UploadOptions struct {
	ContentType         string
	AllowedContentTypes []string
	MaxSize             int64
	ExpiresIn           time.Duration
}

// DownloadOptions control download signed URL generation and response behaviour.
type DownloadOptions struct {
	ExpiresIn    time.Duration
	Disposition  string
	CacheControl string
	ResponseType string
}

// SignedURLResult describes the generated signed URL details.
type SignedURLResult struct {
	URL       string
	Method    string
	ExpiresAt time.Time
	Headers   map[string]string
}

// SignedUploadURL creates a PUT signed URL for the given asset.
func (c *Client) SignedUploadURL(ctx context.Context, kind AssetKind, params PathParams, opts UploadOptions) (SignedURLResult, error) {
	if c == nil {
		return SignedURLResult{}, errNoSigner
	}
	object, err := ObjectPath(kind, params)
	if err != nil {
		return SignedURLResult{}, err
	}

	contentType := strings.TrimSpace(opts.ContentType)
	if contentType == "" {
		return SignedURLResult{}, errContentType
	}
	if len(opts.AllowedContentTypes) > 0 && !contentTypeAllowed(contentType, opts.AllowedContentTypes) {
		return SignedURLResult{}, errContentDenied
	}

	expiry := opts.ExpiresIn
	if expiry <= 0 {
		expiry = defaultUploadExpiry
	}
	expiresAt := c.now().Add(expiry)

	headers := map[string]string{"Content-Type": contentType}
	var extHeaders []string
	if opts.MaxSize > 0 {
		sizeRange := fmt.Sprintf("0,%d", opts.MaxSize)
		extHeaders = append(extHeaders, fmt.Sprintf("x-goog-content-length-range:%s", sizeRange))
		headers["x-goog-content-length-range"] = sizeRange
	}

	urlOpts := storage.SignedURLOptions{
		GoogleAccessID: c.signer.Email(),
		Scheme:         c.scheme,
		Method:         "PUT",
		ContentType:    contentType,
		Headers:        extHeaders,
		Expires:        expiresAt,
		SignBytes: func(payload []byte) ([]byte, error) {
			return c.signer.SignBytes(ctx, payload)
		},
	}

	signedURL, err := storage.SignedURL(c.bucket, object, &urlOpts)
	if err != nil {
		return SignedURLResult{}, fmt.Errorf("storage: sign upload url: %w", err)
	}

	return SignedURLResult{URL: signedURL, Method: "PUT", ExpiresAt: expiresAt, Headers: headers}, nil
}

// SignedDownloadURL creates a GET signed URL for the given asset.
func (c *Client) SignedDownloadURL(ctx context.Context, kind AssetKind, params PathParams, opts DownloadOptions) (SignedURLResult, error) {
	if c == nil {
		return SignedURLResult{}, errNoSigner
	}
	object, err := ObjectPath(kind, params)
	if err != nil {
		return SignedURLResult{}, err
	}

	expiry := opts.ExpiresIn
	if expiry <= 0 {
		expiry = defaultDownloadExpiry
	}
	if expiry > maxDownloadExpiry {
		return SignedURLResult{}, errExpiryTooLong
	}
	expiresAt := c.now().Add(expiry)

	urlOpts := storage.SignedURLOptions{
		GoogleAccessID: c.signer.Email(),
		Scheme:         c.scheme,
		Method:         "GET",
		Expires:        expiresAt,
		SignBytes: func(payload []byte) ([]byte, error) {
			return c.signer.SignBytes(ctx, payload)
		},
	}

	query := map[string]string{}
	if opts.Disposition != "" {
		query["response-content-disposition"] = opts.Disposition
	}
	if opts.CacheControl != "" {
		query["response-cache-control"] = opts.CacheControl
	}
	if opts.ResponseType != "" {
		query["response-content-type"] = opts.ResponseType
	}
	if len(query) > 0 {
		urlOpts.QueryParameters = mapToURLValues(query)
	}

	signedURL, err := storage.SignedURL(c.bucket, object, &urlOpts)
	if err != nil {
		return SignedURLResult{}, fmt.Errorf("storage: sign download url: %w", err)
	}

	return SignedURLResult{URL: signedURL, Method: "GET", ExpiresAt: expiresAt}, nil
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(contentType))
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if candidate == "*" {
			return true
		}
		if strings.HasSuffix(candidate, "/*") {
			if strings.HasPrefix(normalized, strings.TrimSuffix(candidate, "*")) {
				return true
			}
			continue
		}
		if normalized == candidate {
			return true
		}
	}
	return false
}

func mapToURLValues(values map[string]string) url.Values {
	out := make(url.Values, len(values))
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out.Add(key, values[key])
	}
	return out
}
