// Package secrets resolves secret:// references through Google Secret
// Manager. The config loader uses it for the Stripe API key and webhook
// secret; resolved values are cached for the lifetime of the process.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const meterName = "github.com/stylefit/api/internal/platform/secrets"

// accessClient is the slice of the Secret Manager client the fetcher
// needs; tests substitute it through WithSecretManagerClient.
type accessClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

var newSecretManagerClient = func(ctx context.Context, opts ...option.ClientOption) (*secretmanager.Client, error) {
	return secretmanager.NewClient(ctx, opts...)
}

// Fetcher resolves secret references against one Google Cloud project.
type Fetcher struct {
	client     accessClient
	ownsClient bool

	logger  *zap.Logger
	env     string
	project string

	mu    sync.RWMutex
	cache map[string]string

	latency        metric.Float64Histogram
	latencyEnabled bool
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithEnvironment tags cache entries and metrics with the deployment
// environment so one process never serves another environment's values.
func WithEnvironment(env string) Option {
	return func(f *Fetcher) {
		f.env = strings.ToLower(strings.TrimSpace(env))
	}
}

// WithDefaultProject sets the project secrets are read from when the
// reference itself names none.
func WithDefaultProject(projectID string) Option {
	return func(f *Fetcher) {
		f.project = strings.TrimSpace(projectID)
	}
}

// WithSecretManagerClient injects a preconfigured client, mainly for tests.
func WithSecretManagerClient(client accessClient) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher builds a Fetcher. When no client is injected and the Secret
// Manager client cannot be constructed, the error is deferred to the
// first Resolve call so environments without secret references still boot.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		logger: zap.NewNop(),
		cache:  make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	latency, err := otel.GetMeterProvider().Meter(meterName).Float64Histogram(
		"secrets.resolve.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency of secret resolution attempts"),
	)
	if err != nil {
		f.logger.Warn("secrets: latency metric unavailable", zap.Error(err))
	} else {
		f.latency = latency
		f.latencyEnabled = true
	}

	if f.client == nil {
		client, err := newSecretManagerClient(ctx)
		if err != nil {
			f.logger.Warn("secrets: secret manager client unavailable", zap.Error(err))
		} else {
			f.client = client
			f.ownsClient = true
		}
	}

	return f, nil
}

// Close releases the underlying client when the fetcher created it.
func (f *Fetcher) Close() error {
	if f.ownsClient && f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Resolve returns the value behind a secret:// reference. References may
// pin a version or project via query parameters, e.g.
// secret://stripe-api-key?version=3&project=other-project.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	start := time.Now()

	parsed, err := parseRef(ref)
	if err != nil {
		f.observe(ctx, start, "error")
		return "", err
	}

	key := f.cacheKey(parsed)
	if value, ok := f.cached(key); ok {
		f.observe(ctx, start, "cache")
		return value, nil
	}

	project := parsed.project
	if project == "" {
		project = f.project
	}
	if project == "" {
		f.observe(ctx, start, "error")
		return "", fmt.Errorf("secrets: no project configured for %s", parsed.canonical)
	}
	if f.client == nil {
		f.observe(ctx, start, "error")
		return "", fmt.Errorf("secrets: secret manager client unavailable for %s", parsed.canonical)
	}

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, parsed.name, parsed.version)
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		f.observe(ctx, start, "error")
		return "", fmt.Errorf("secrets: access %s: %w", parsed.canonical, err)
	}
	if resp.GetPayload() == nil {
		f.observe(ctx, start, "error")
		return "", fmt.Errorf("secrets: empty payload for %s", parsed.canonical)
	}

	value := string(resp.GetPayload().GetData())
	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()

	f.observe(ctx, start, "remote")
	return value, nil
}

func (f *Fetcher) cached(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	value, ok := f.cache[key]
	return value, ok
}

func (f *Fetcher) cacheKey(ref secretRef) string {
	return f.env + "|" + ref.canonical + "#" + ref.version
}

func (f *Fetcher) observe(ctx context.Context, start time.Time, outcome string) {
	if !f.latencyEnabled {
		return
	}
	f.latency.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("environment", f.env),
		))
}

type secretRef struct {
	canonical string
	name      string
	version   string
	project   string
}

func parseRef(ref string) (secretRef, error) {
	if strings.TrimSpace(ref) == "" {
		return secretRef{}, errors.New("secrets: empty reference")
	}
	u, err := url.Parse(ref)
	if err != nil {
		return secretRef{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != "secret" {
		return secretRef{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}

	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return secretRef{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}

	query := u.Query()
	version := strings.TrimSpace(query.Get("version"))
	if version == "" {
		version = "latest"
	}

	canonical := *u
	canonical.RawQuery = ""
	canonical.Fragment = ""

	return secretRef{
		canonical: canonical.String(),
		name:      name,
		version:   version,
		project:   strings.TrimSpace(query.Get("project")),
	}, nil
}
