package content

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ninepin/mailbox/store"
)

type stack struct {
	Type        string            `json:"type" msgpack:"type"`
	Amount      int               `json:"amount" msgpack:"amount"`
	DisplayName string            `json:"display_name,omitempty" msgpack:"display_name,omitempty"`
	Enchants    map[string]int    `json:"enchants,omitempty" msgpack:"enchants,omitempty"`
	Lore        []string          `json:"lore,omitempty" msgpack:"lore,omitempty"`
	Extra       map[string]string `json:"extra,omitempty" msgpack:"extra,omitempty"`
}

func TestCodecs_RoundTrip(t *testing.T) {
	in := stack{
		Type:        "DIAMOND_SWORD",
		Amount:      1,
		DisplayName: "Excalibur",
		Enchants:    map[string]int{"sharpness": 5},
		Lore:        []string{"pulled from a stone"},
	}

	for _, c := range []Codec{JSON, MsgPack} {
		t.Run(c.ContentType(), func(t *testing.T) {
			p, err := Encode(c, in.Type, in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if p.Kind != "DIAMOND_SWORD" || p.ContentType != c.ContentType() {
				t.Errorf("payload header = %q %q", p.Kind, p.ContentType)
			}

			var out stack
			if err := Decode(p, DefaultRegistry(), &out); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(in, out); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMsgPackIsSmallerThanJSON(t *testing.T) {
	v := stack{Type: "COBBLESTONE", Amount: 64, Lore: []string{"a", "b", "c"}}
	j, _ := JSON.Marshal(v)
	m, _ := MsgPack.Marshal(v)
	if len(m) >= len(j) {
		t.Errorf("msgpack %d bytes, json %d bytes", len(m), len(j))
	}
}

func TestEncode_RequiresKind(t *testing.T) {
	if _, err := Encode(JSON, "  ", stack{}); !errors.Is(err, ErrKindRequired) {
		t.Errorf("expected ErrKindRequired, got %v", err)
	}
}

func TestEncode_MarshalError(t *testing.T) {
	_, err := Encode(JSON, "BAD", func() {})
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("expected ErrEncoding, got %v", err)
	}
}

func TestDecode(t *testing.T) {
	reg := DefaultRegistry()

	t.Run("unknown content type", func(t *testing.T) {
		p := store.Payload{Kind: "X", ContentType: "application/protobuf", Data: []byte{1}}
		var out stack
		if err := Decode(p, reg, &out); !errors.Is(err, ErrUnsupportedContentType) {
			t.Errorf("expected ErrUnsupportedContentType, got %v", err)
		}
	})

	t.Run("content type parameters ignored", func(t *testing.T) {
		p := store.Payload{Kind: "X", ContentType: "Application/JSON; charset=utf-8", Data: []byte(`{"type":"X","amount":2}`)}
		var out stack
		if err := Decode(p, reg, &out); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if out.Amount != 2 {
			t.Errorf("Amount = %d, want 2", out.Amount)
		}
		if !IsJSON(p) {
			t.Error("IsJSON = false")
		}
	})

	t.Run("corrupt data", func(t *testing.T) {
		p := store.Payload{Kind: "X", ContentType: JSON.ContentType(), Data: []byte(`{`)}
		var out stack
		if err := Decode(p, reg, &out); !errors.Is(err, ErrDecoding) {
			t.Errorf("expected ErrDecoding, got %v", err)
		}
	})

	t.Run("raw payload", func(t *testing.T) {
		src := []byte{0xde, 0xad}
		p := Raw("OPAQUE", src)
		src[0] = 0

		var b []byte
		if err := Decode(p, reg, &b); err != nil {
			t.Fatalf("Decode raw: %v", err)
		}
		if diff := cmp.Diff([]byte{0xde, 0xad}, b); diff != "" {
			t.Errorf("raw bytes (-want +got):\n%s", diff)
		}

		var out stack
		if err := Decode(p, reg, &out); !errors.Is(err, ErrUnsupportedContentType) {
			t.Errorf("raw into struct: got %v", err)
		}
	})
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Lookup("application/json"); ok {
		t.Fatal("empty registry returned a codec")
	}
	reg.Register(JSON)
	c, ok := reg.Lookup("APPLICATION/JSON")
	if !ok || c.ContentType() != "application/json" {
		t.Errorf("Lookup = %v, %v", c, ok)
	}
}
