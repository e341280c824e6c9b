package document

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ninepin/mailbox/store"
)

// document is the on-disk layout of one user's mailbox:
//
//	{"mails":[{"item":{"kind":"...","content_type":"...","data":"<base64>"},"timestamp":1700000000000,"isRead":false}]}
type document struct {
	Mails []json.RawMessage `json:"mails"`
}

func encode(mails []store.Mail) ([]byte, error) {
	if mails == nil {
		mails = []store.Mail{}
	}
	return json.Marshal(struct {
		Mails []store.Mail `json:"mails"`
	}{mails})
}

// decode parses a document. Records that fail to decode or carry no item are
// skipped and logged; only an unparseable document is an error.
func decode(data []byte, key string, logger *slog.Logger) ([]store.Mail, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", store.ErrMalformedRecord, key, err)
	}

	mails := make([]store.Mail, 0, len(doc.Mails))
	for i, raw := range doc.Mails {
		var m store.Mail
		if err := json.Unmarshal(raw, &m); err != nil {
			logger.Warn("skipping malformed mail record", "key", key, "index", i, "error", err)
			continue
		}
		if m.Payload.IsEmpty() {
			logger.Warn("skipping mail record without item", "key", key, "index", i)
			continue
		}
		mails = append(mails, m)
	}
	return mails, nil
}
