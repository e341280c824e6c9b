package mailbox

import (
	"errors"
	"strings"
	"testing"

	"github.com/ninepin/mailbox/store"
)

func TestValidatePayload(t *testing.T) {
	o := newOptions(WithMaxPayloadSize(16))

	tests := []struct {
		name    string
		payload store.Payload
		field   string
	}{
		{name: "valid", payload: store.Payload{Kind: "DIAMOND", Data: []byte("x")}},
		{name: "kind at max length", payload: store.Payload{Kind: strings.Repeat("K", DefaultMaxKindLength)}},
		{name: "data at max size", payload: store.Payload{Kind: "BOOK", Data: make([]byte, 16)}},
		{name: "empty kind", payload: store.Payload{}, field: "kind"},
		{name: "whitespace kind", payload: store.Payload{Kind: "   "}, field: "kind"},
		{name: "padded kind", payload: store.Payload{Kind: " STONE"}, field: "kind"},
		{name: "kind too long", payload: store.Payload{Kind: strings.Repeat("K", DefaultMaxKindLength+1)}, field: "kind"},
		{name: "data too large", payload: store.Payload{Kind: "BOOK", Data: make([]byte, 17)}, field: "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePayload(tt.payload, o)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}
}
