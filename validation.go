package mailbox

import (
	"fmt"
	"strings"

	"github.com/ninepin/mailbox/store"
)

// validatePayload checks a payload against the configured limits.
func validatePayload(p store.Payload, o *options) error {
	kind := strings.TrimSpace(p.Kind)
	if kind == "" {
		return &ValidationError{Field: "kind", Message: "must not be empty"}
	}
	if kind != p.Kind {
		return &ValidationError{Field: "kind", Message: "must not have surrounding whitespace"}
	}
	if len(p.Kind) > o.maxKindLength {
		return &ValidationError{Field: "kind", Message: fmt.Sprintf("exceeds max length %d", o.maxKindLength)}
	}
	if len(p.Data) > o.maxPayloadSize {
		return &ValidationError{Field: "data", Message: fmt.Sprintf("size %d exceeds max %d bytes", len(p.Data), o.maxPayloadSize)}
	}
	return nil
}
