package observability

import (
	"testing"
)

func TestParseTraceHeader(t *testing.T) {
	const traceID = "105445aa7843bc8bf206b12000100000"

	cases := []struct {
		name    string
		header  string
		ok      bool
		sampled bool
	}{
		{name: "decimal span sampled", header: traceID + "/1;o=1", ok: true, sampled: true},
		{name: "decimal span unsampled", header: traceID + "/12345;o=0", ok: true},
		{name: "no options", header: traceID + "/12345", ok: true},
		{name: "hex span", header: traceID + "/00f067aa0ba902b7;o=1", ok: true, sampled: true},
		{name: "empty", header: ""},
		{name: "missing span", header: traceID},
		{name: "short trace id", header: "abc123/1;o=1"},
		{name: "zero span id", header: traceID + "/0;o=1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spanCtx, ok := parseTraceHeader(tc.header)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if got := spanCtx.TraceID().String(); got != traceID {
				t.Errorf("trace id = %s", got)
			}
			if spanCtx.IsSampled() != tc.sampled {
				t.Errorf("sampled = %v, want %v", spanCtx.IsSampled(), tc.sampled)
			}
			if !spanCtx.IsRemote() {
				t.Error("parsed span context must be remote")
			}
		})
	}
}

func TestClipStripsControlCharacters(t *testing.T) {
	if got := clip("GET\n/products\t", 64); got != "GET/products" {
		t.Errorf("clip = %q", got)
	}
	if got := clip("abcdef", 4); got != "abcd" {
		t.Errorf("clip limit = %q", got)
	}
}
