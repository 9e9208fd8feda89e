// Package body implements a fully materialized, clonable, hashable HTTP
// message body. Caching a response means caching the bytes that make it
// up; this package is the shape those bytes take once they are no longer
// attached to a live connection.
package body

import (
	"io"
	"net/http"

	"github.com/zeebo/blake3"
)

// Buffered is a drained HTTP message body: the full byte payload plus any
// trailer header set observed after the body's EOF. It carries no
// reference to the connection it was read from and can be written out
// any number of times, to any number of destinations.
type Buffered struct {
	data     []byte
	trailers http.Header
}

// Empty is the zero-length buffered body with no trailers.
var Empty = Buffered{}

// New wraps data (which must not be mutated afterwards by the caller) and
// an optional trailer set into a Buffered body.
func New(data []byte, trailers http.Header) Buffered {
	return Buffered{data: data, trailers: trailers}
}

// Bytes returns the body's byte payload. Callers must not mutate it.
func (b Buffered) Bytes() []byte { return b.data }

// Len returns the number of bytes in the body payload.
func (b Buffered) Len() int { return len(b.data) }

// Trailers returns the trailer header set observed after the body, or nil
// if none were present.
func (b Buffered) Trailers() http.Header { return b.trailers }

// Clone returns a Buffered body that shares the same underlying byte
// buffer (bodies are immutable once drained, so sharing is safe) but owns
// an independent copy of the trailer header set, so a caller mutating the
// clone's trailers never affects the original.
func (b Buffered) Clone() Buffered {
	var trailers http.Header
	if b.trailers != nil {
		trailers = b.trailers.Clone()
	}
	return Buffered{data: b.data, trailers: trailers}
}

// Hash returns a 128-bit digest of the body's byte payload. Trailers are
// deliberately excluded: gRPC status trailers (and similar) legitimately
// vary run to run without the response they terminate being a different
// response.
func (b Buffered) Hash() [16]byte {
	sum := blake3.Sum256(b.data)
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}

// DrainRequest fully reads req's body and returns it as a Buffered body,
// capturing any trailers declared via req.Trailer and populated once the
// body reaches EOF. req.Body is closed. The caller is responsible for
// replacing req.Body if the request is forwarded afterwards.
func DrainRequest(req *http.Request) (Buffered, error) {
	if req.Body == nil {
		return Empty, nil
	}
	defer req.Body.Close()
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return Empty, err
	}
	return New(data, cloneNonEmpty(req.Trailer)), nil
}

// DrainResponse fully reads resp's body and returns it as a Buffered
// body, capturing any trailers declared via resp.Trailer and populated
// once the body reaches EOF. resp.Body is closed.
func DrainResponse(resp *http.Response) (Buffered, error) {
	if resp.Body == nil {
		return Empty, nil
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Empty, err
	}
	return New(data, cloneNonEmpty(resp.Trailer)), nil
}

func cloneNonEmpty(h http.Header) http.Header {
	if len(h) == 0 {
		return nil
	}
	return h.Clone()
}

// WriteTo writes the body payload to w, followed by the trailers, in that
// order: a data frame then a trailers frame, mirroring how an HTTP/2
// stream actually terminates. Declaring trailer keys ahead of the body
// write is required by net/http for them to be sent at all.
func (b Buffered) WriteTo(w http.ResponseWriter) error {
	for key := range b.trailers {
		w.Header().Add("Trailer", key)
	}
	if len(b.data) > 0 {
		if _, err := w.Write(b.data); err != nil {
			return err
		}
	}
	for key, values := range b.trailers {
		for _, v := range values {
			w.Header().Set(http.TrailerPrefix+key, v)
		}
	}
	return nil
}

// AttachRequest installs the buffered body (as a fresh reader) onto req,
// so it can be replayed as the body of an outbound request without
// retaining any reference to the original inbound body.
func (b Buffered) AttachRequest(req *http.Request) {
	data := b.data
	req.ContentLength = int64(len(data))
	req.Body = io.NopCloser(newByteReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(newByteReader(data)), nil
	}
	if b.trailers != nil {
		req.Trailer = b.trailers.Clone()
	}
}

func newByteReader(data []byte) io.Reader {
	return &byteReader{data: data}
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
