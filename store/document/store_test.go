package document_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/store/document"
	"github.com/ninepin/mailbox/store/document/bolt"
	"github.com/ninepin/mailbox/store/document/dir"
	docredis "github.com/ninepin/mailbox/store/document/redis"
	"github.com/ninepin/mailbox/store/storetest"
	goredis "github.com/redis/go-redis/v9"
)

func connect(t *testing.T, b document.Bucket) *document.Store {
	t.Helper()
	s := document.New(b)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return s
}

func TestConformance_Dir(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return connect(t, dir.New(t.TempDir()))
	})
}

func TestConformance_Bolt(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return connect(t, bolt.New(filepath.Join(t.TempDir(), "mail.db")))
	})
}

func TestConformance_Redis(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		mr := miniredis.RunT(t)
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		return connect(t, docredis.New(client, docredis.WithOwnedClient()))
	})
}

func TestStore_SkipsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := connect(t, dir.New(root))
	defer s.Close(ctx)

	user := uuid.New()
	if err := s.Save(ctx, user, []store.Mail{storetest.Mail("APPLE", 1)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.json"), []byte(`{"mails":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, uuid.NewString()+".json"), []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 mailbox, got %d: %v", len(all), all)
	}
	if got := all[user]; len(got) != 1 || got[0].Payload.Kind != "APPLE" {
		t.Errorf("unexpected mailbox: %+v", got)
	}
}

func TestStore_SkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := connect(t, dir.New(root))
	defer s.Close(ctx)

	user := uuid.New()
	doc := `{"mails":[
		{"item":{"kind":"GOOD","data":"AQI="},"timestamp":5,"isRead":false},
		{"item":"not an item","timestamp":4},
		{"timestamp":3},
		{"item":{"kind":"ALSO_GOOD"},"timestamp":2,"isRead":true}
	]}`
	if err := os.WriteFile(filepath.Join(root, user.String()+".json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, user)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []store.Mail{
		{Payload: store.Payload{Kind: "GOOD", Data: []byte{1, 2}}, Timestamp: 5},
		{Payload: store.Payload{Kind: "ALSO_GOOD"}, Timestamp: 2, Read: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_CorruptDocumentIsError(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := connect(t, dir.New(root))
	defer s.Close(ctx)

	user := uuid.New()
	if err := os.WriteFile(filepath.Join(root, user.String()+".json"), []byte(`[[[`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, user); !store.IsMalformedRecord(err) {
		t.Errorf("expected malformed record error, got %v", err)
	}
}

func TestStore_EmptySaveWritesDocument(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := connect(t, dir.New(root))
	defer s.Close(ctx)

	user := uuid.New()
	if err := s.Save(ctx, user, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, user.String()+".json"))
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	if string(data) != `{"mails":[]}` {
		t.Errorf("document = %s", data)
	}
}
