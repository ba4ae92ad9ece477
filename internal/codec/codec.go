// Package codec converts chart values to and from the media types the API
// speaks. Storage always uses JSON; msgpack and CBOR are wire-only.
package codec

import (
	"mime"
	"strings"
)

const (
	MediaJSON    = "application/json"
	MediaMsgpack = "application/msgpack"
	MediaCBOR    = "application/cbor"
)

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// For returns the codec registered for a canonical media type.
func For[V any](mediaType string) (Codec[V], bool) {
	switch mediaType {
	case MediaJSON:
		return JSON[V]{}, true
	case MediaMsgpack:
		return Msgpack[V]{}, true
	case MediaCBOR:
		return MustCBOR[V](), true
	}
	return nil, false
}

// canonical maps a parsed media type to one of the Media* constants.
func canonical(mt string) (string, bool) {
	switch mt {
	case MediaJSON, "text/json":
		return MediaJSON, true
	case MediaMsgpack, "application/x-msgpack", "application/vnd.msgpack":
		return MediaMsgpack, true
	case MediaCBOR:
		return MediaCBOR, true
	}
	return "", false
}

// FromContentType resolves a request Content-Type header. An empty header is
// treated as JSON.
func FromContentType(header string) (string, bool) {
	if strings.TrimSpace(header) == "" {
		return MediaJSON, true
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return "", false
	}
	return canonical(mt)
}

// Negotiate picks the response media type from an Accept header: the first
// listed type this package supports, else JSON.
func Negotiate(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if c, ok := canonical(mt); ok {
			return c
		}
		if mt == "*/*" || mt == "application/*" {
			return MediaJSON
		}
	}
	return MediaJSON
}
