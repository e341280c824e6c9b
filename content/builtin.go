package content

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Built-in codecs.
var (
	// JSON encodes with encoding/json. Readable in the document backends'
	// files, at the cost of size.
	JSON Codec = jsonCodec{}

	// MsgPack encodes with msgpack. Compact; the default for hosts that do
	// not need to read stored items by eye.
	MsgPack Codec = msgpackCodec{}
)

// DefaultRegistry returns a registry pre-loaded with all built-in codecs.
func DefaultRegistry() *Registry {
	return NewRegistry(JSON, MsgPack)
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string                { return "application/json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string                { return "application/msgpack" }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
