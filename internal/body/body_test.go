package body

import (
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
)

func TestDrainRequestCapturesBodyAndTrailers(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("payload"))
	req.Trailer = http.Header{"X-Checksum": []string{"abc"}}

	buf, err := DrainRequest(req)
	if err != nil {
		t.Fatalf("DrainRequest failed: %v", err)
	}
	if string(buf.Bytes()) != "payload" {
		t.Fatalf("got body %q, want %q", buf.Bytes(), "payload")
	}
	if got := buf.Trailers().Get("X-Checksum"); got != "abc" {
		t.Fatalf("got trailer %q, want %q", got, "abc")
	}
}

func TestHashIgnoresTrailers(t *testing.T) {
	a := New([]byte("same body"), http.Header{"X-A": []string{"1"}})
	b := New([]byte("same body"), http.Header{"X-A": []string{"2"}})
	if a.Hash() != b.Hash() {
		t.Fatalf("hash must be insensitive to trailer contents")
	}

	c := New([]byte("different body"), nil)
	if a.Hash() == c.Hash() {
		t.Fatalf("hash must differ for different body bytes")
	}
}

func TestCloneSharesBytesOwnsTrailers(t *testing.T) {
	orig := New([]byte("x"), http.Header{"X-A": []string{"1"}})
	clone := orig.Clone()

	clone.Trailers().Set("X-A", "2")
	if orig.Trailers().Get("X-A") != "1" {
		t.Fatalf("mutating clone's trailers must not affect original")
	}
	if &orig.data[0] != &clone.data[0] {
		t.Fatalf("clone should share the same underlying byte buffer")
	}
}

func TestWriteToEmitsDataThenTrailers(t *testing.T) {
	buf := New([]byte("hello"), http.Header{"X-Sum": []string{"deadbeef"}})
	rec := httptest.NewRecorder()

	if err := buf.WriteTo(rec); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if rec.Body.String() != "hello" {
		t.Fatalf("got body %q, want %q", rec.Body.String(), "hello")
	}
	if got := rec.Result().Trailer.Get(textproto.CanonicalMIMEHeaderKey("X-Sum")); got != "deadbeef" {
		t.Fatalf("got trailer %q, want %q", got, "deadbeef")
	}
}

func TestAttachRequestIsReplayable(t *testing.T) {
	buf := New([]byte("payload"), nil)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	buf.AttachRequest(req)

	got, err := DrainRequest(req)
	if err != nil {
		t.Fatalf("DrainRequest after AttachRequest failed: %v", err)
	}
	if string(got.Bytes()) != "payload" {
		t.Fatalf("got %q, want %q", got.Bytes(), "payload")
	}

	again, err := req.GetBody()
	if err != nil {
		t.Fatalf("GetBody failed: %v", err)
	}
	again.Close()
}
