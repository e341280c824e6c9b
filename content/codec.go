// Package content encodes host item objects into mailbox payloads and back.
//
// The mailbox treats store.Payload.Data as opaque bytes. The host decides how
// an item object becomes bytes; this package gives that decision a name. A
// [Codec] marshals a value, and [Encode] records the codec's content type on
// the payload so [Decode] can find the same codec later through a [Registry].
//
// # Usage
//
//	p, err := content.Encode(content.MsgPack, "DIAMOND_SWORD", stack)
//	mail, err := svc.Deliver(ctx, user, p)
//
//	var back ItemStack
//	err = content.Decode(mail.Payload, content.DefaultRegistry(), &back)
//
// Payloads without a content type are treated as raw bytes; decoding them
// into anything other than *[]byte fails with [ErrUnsupportedContentType].
package content

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ninepin/mailbox/store"
)

// Sentinel errors.
var (
	// ErrUnsupportedContentType is returned when no codec is registered for a content type.
	ErrUnsupportedContentType = errors.New("content: unsupported content type")

	// ErrEncoding is returned when a codec fails to encode a value.
	ErrEncoding = errors.New("content: encoding failed")

	// ErrDecoding is returned when a codec fails to decode a payload.
	ErrDecoding = errors.New("content: decoding failed")

	// ErrKindRequired is returned by Encode for an empty item kind.
	ErrKindRequired = errors.New("content: item kind is required")
)

// Codec converts between values and bytes for one content type.
type Codec interface {
	// ContentType returns the MIME type this codec handles.
	ContentType() string
	// Marshal encodes v.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes data into v, which must be a pointer.
	Unmarshal(data []byte, v any) error
}

// Registry maps content types to codecs.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry creates a registry pre-loaded with the given codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{
		codecs: make(map[string]Codec, len(codecs)),
	}
	for _, c := range codecs {
		r.codecs[normalize(c.ContentType())] = c
	}
	return r
}

// Register adds a codec to the registry. If a codec for the same content type
// already exists, it is replaced.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	r.codecs[normalize(c.ContentType())] = c
	r.mu.Unlock()
}

// Lookup returns the codec for the given content type. Parameters such as
// "; charset=utf-8" are ignored.
func (r *Registry) Lookup(contentType string) (Codec, bool) {
	r.mu.RLock()
	c, ok := r.codecs[normalize(contentType)]
	r.mu.RUnlock()
	return c, ok
}

func normalize(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Encode marshals v with codec into a payload for an item of the given kind.
func Encode(codec Codec, kind string, v any) (store.Payload, error) {
	if strings.TrimSpace(kind) == "" {
		return store.Payload{}, ErrKindRequired
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return store.Payload{}, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return store.Payload{
		Kind:        kind,
		ContentType: codec.ContentType(),
		Data:        data,
	}, nil
}

// Raw wraps bytes the host already serialized.
func Raw(kind string, data []byte) store.Payload {
	return store.Payload{Kind: kind, Data: append([]byte(nil), data...)}
}

// Decode unmarshals the payload into v using the codec registered for its
// content type. A payload without a content type can only be decoded into a
// *[]byte, which receives a copy of the data.
func Decode(p store.Payload, registry *Registry, v any) error {
	if p.ContentType == "" {
		if b, ok := v.(*[]byte); ok {
			*b = append([]byte(nil), p.Data...)
			return nil
		}
		return fmt.Errorf("%w: payload %s has no content type", ErrUnsupportedContentType, p.Kind)
	}

	codec, ok := registry.Lookup(p.ContentType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedContentType, p.ContentType)
	}
	if err := codec.Unmarshal(p.Data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecoding, err)
	}
	return nil
}

// IsJSON reports whether the payload carries JSON content.
func IsJSON(p store.Payload) bool {
	return normalize(p.ContentType) == JSON.ContentType()
}
