package mongo

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/store/storetest"
)

// Integration tests run only when MAILBOX_TEST_MONGO_URI points at a server.
func TestConformance(t *testing.T) {
	uri := os.Getenv("MAILBOX_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MAILBOX_TEST_MONGO_URI not set")
	}
	storetest.Run(t, func(t *testing.T) store.Store {
		client, err := Dial(uri)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		s := New(client,
			WithDatabase("mailbox_test"),
			WithCollection("mailboxes_"+uuid.NewString()[:8]),
			WithBatchSize(1),
		)
		if err := s.Connect(context.Background()); err != nil {
			t.Fatalf("connect: %v", err)
		}
		return s
	})
}

func TestStore_NotConnected(t *testing.T) {
	s := New(nil)
	if _, err := s.Load(context.Background(), uuid.New()); !errors.Is(err, store.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := s.Connect(context.Background()); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestOptions(t *testing.T) {
	o := newOptions()
	if o.database != DefaultDatabase || o.collection != DefaultCollection || o.batchSize != DefaultBatchSize {
		t.Errorf("unexpected defaults %+v", o)
	}

	o = newOptions(WithDatabase(""), WithCollection("mail"), WithBatchSize(0), WithTimeout(-1))
	if o.database != DefaultDatabase {
		t.Errorf("empty database replaced default: %q", o.database)
	}
	if o.collection != "mail" {
		t.Errorf("collection = %q, want mail", o.collection)
	}
	if o.batchSize != DefaultBatchSize || o.timeout != DefaultTimeout {
		t.Errorf("invalid values replaced defaults: %+v", o)
	}
}
