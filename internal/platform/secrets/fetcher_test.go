package secrets

import (
	"context"
	"strings"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeAccessClient struct {
	values map[string]string
	calls  []string
	closed bool
}

func (f *fakeAccessClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.calls = append(f.calls, req.GetName())
	value, ok := f.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret version not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (f *fakeAccessClient) Close() error {
	f.closed = true
	return nil
}

func newTestFetcher(t *testing.T, client accessClient, opts ...Option) *Fetcher {
	t.Helper()
	opts = append([]Option{WithSecretManagerClient(client)}, opts...)
	fetcher, err := NewFetcher(context.Background(), opts...)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return fetcher
}

func TestResolveUsesDefaultProjectAndLatestVersion(t *testing.T) {
	client := &fakeAccessClient{values: map[string]string{
		"projects/stylefit-prod/secrets/stripe-api-key/versions/latest": "sk_live_123",
	}}
	fetcher := newTestFetcher(t, client, WithDefaultProject("stylefit-prod"))

	value, err := fetcher.Resolve(context.Background(), "secret://stripe-api-key")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if value != "sk_live_123" {
		t.Errorf("value = %q", value)
	}
	if len(client.calls) != 1 || client.calls[0] != "projects/stylefit-prod/secrets/stripe-api-key/versions/latest" {
		t.Errorf("calls = %v", client.calls)
	}
}

func TestResolveCachesByReference(t *testing.T) {
	client := &fakeAccessClient{values: map[string]string{
		"projects/stylefit-prod/secrets/stripe-api-key/versions/latest": "sk_live_123",
	}}
	fetcher := newTestFetcher(t, client, WithDefaultProject("stylefit-prod"), WithEnvironment("prod"))

	for i := 0; i < 3; i++ {
		if _, err := fetcher.Resolve(context.Background(), "secret://stripe-api-key"); err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
	}
	if len(client.calls) != 1 {
		t.Errorf("remote calls = %d, want 1 (later resolves served from cache)", len(client.calls))
	}
}

func TestResolveHonoursVersionAndProjectOverrides(t *testing.T) {
	client := &fakeAccessClient{values: map[string]string{
		"projects/stylefit-shared/secrets/stripe-webhook/versions/4": "whsec_456",
	}}
	fetcher := newTestFetcher(t, client, WithDefaultProject("stylefit-prod"))

	value, err := fetcher.Resolve(context.Background(), "secret://stripe-webhook?version=4&project=stylefit-shared")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if value != "whsec_456" {
		t.Errorf("value = %q", value)
	}
}

func TestResolveRequiresAProject(t *testing.T) {
	fetcher := newTestFetcher(t, &fakeAccessClient{})

	_, err := fetcher.Resolve(context.Background(), "secret://stripe-api-key")
	if err == nil || !strings.Contains(err.Error(), "no project") {
		t.Fatalf("err = %v, want missing-project error", err)
	}
}

func TestResolveRejectsForeignSchemes(t *testing.T) {
	fetcher := newTestFetcher(t, &fakeAccessClient{}, WithDefaultProject("stylefit-prod"))

	for _, ref := range []string{"", "vault://stripe", "stripe-api-key"} {
		if _, err := fetcher.Resolve(context.Background(), ref); err == nil {
			t.Errorf("Resolve(%q) accepted an invalid reference", ref)
		}
	}
}

func TestResolveSurfacesAccessErrors(t *testing.T) {
	fetcher := newTestFetcher(t, &fakeAccessClient{}, WithDefaultProject("stylefit-prod"))

	_, err := fetcher.Resolve(context.Background(), "secret://missing-key")
	if err == nil || !strings.Contains(err.Error(), "secret://missing-key") {
		t.Fatalf("err = %v, want access error naming the reference", err)
	}
}

func TestCloseOnlyClosesOwnedClients(t *testing.T) {
	client := &fakeAccessClient{}
	fetcher := newTestFetcher(t, client)

	if err := fetcher.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.closed {
		t.Error("injected client must not be closed by the fetcher")
	}
}
