package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"github.com/ninepin/mailbox/store/storetest"
)

func newSQLite(t *testing.T, opts ...Option) *Store {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "mailbox.db"), PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := New(db, opts...)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newSQLite(t) })
}

func TestDialectOf(t *testing.T) {
	tests := []struct {
		driver string
		want   Dialect
		err    bool
	}{
		{"mysql", MySQL, false},
		{"postgres", Postgres, false},
		{"pgx", Postgres, false},
		{"sqlite", SQLite, false},
		{"sqlite3", SQLite, false},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := DialectOf(tt.driver)
			if (err != nil) != tt.err {
				t.Fatalf("err = %v, want err %v", err, tt.err)
			}
			if got != tt.want {
				t.Errorf("DialectOf(%q) = %q, want %q", tt.driver, got, tt.want)
			}
		})
	}
}

func TestSchema_PerDialect(t *testing.T) {
	mysql := strings.Join(MySQL.schema("mailbox_mails", "idx"), "\n")
	if !strings.Contains(mysql, "AUTO_INCREMENT") || !strings.Contains(mysql, "LONGBLOB") {
		t.Errorf("mysql schema missing dialect types:\n%s", mysql)
	}
	pg := strings.Join(Postgres.schema("mailbox_mails", "idx"), "\n")
	if !strings.Contains(pg, "BIGSERIAL") || !strings.Contains(pg, "BYTEA") {
		t.Errorf("postgres schema missing dialect types:\n%s", pg)
	}
	lite := strings.Join(SQLite.schema("mailbox_mails", "idx"), "\n")
	if !strings.Contains(lite, "AUTOINCREMENT") || !strings.Contains(lite, "BLOB") {
		t.Errorf("sqlite schema missing dialect types:\n%s", lite)
	}
}

func TestStore_TablePrefix(t *testing.T) {
	s := newSQLite(t, WithTablePrefix("srv1_"))
	defer s.Close(context.Background())
	if s.Table() != "srv1_mails" {
		t.Errorf("Table() = %q", s.Table())
	}
}

func TestStore_RejectsInvalidPrefix(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "bad.db"), PoolConfig{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	s := New(db, WithTablePrefix("x; DROP TABLE y; --"))
	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("expected invalid prefix error")
	}
}

func TestStore_SaveRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)
	defer s.Close(ctx)

	user := uuid.New()
	prior := []store.Mail{storetest.Mail("OLD", 1)}
	if err := s.Save(ctx, user, prior); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	trigger := `CREATE TRIGGER reject_poison BEFORE INSERT ON mailbox_mails
		WHEN NEW.item_kind = 'POISON'
		BEGIN SELECT RAISE(ABORT, 'poisoned item'); END`
	if _, err := s.db.ExecContext(ctx, trigger); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	err := s.Save(ctx, user, []store.Mail{storetest.Mail("NEW", 3), storetest.Mail("POISON", 2)})
	if !errors.Is(err, store.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}

	got, err := s.Load(ctx, user)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(prior, got); diff != "" {
		t.Errorf("prior rows not preserved (-want +got):\n%s", diff)
	}
}

func TestStore_LoadOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)
	defer s.Close(ctx)

	user := uuid.New()
	// Stored oldest first; equal timestamps keep insertion order.
	in := []store.Mail{storetest.Mail("A", 1), storetest.Mail("B", 5), storetest.Mail("C", 5)}
	if err := s.Save(ctx, user, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, user)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var kinds []string
	for _, m := range got {
		kinds = append(kinds, m.Payload.Kind)
	}
	if diff := cmp.Diff([]string{"B", "C", "A"}, kinds); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_LoadAllSkipsInvalidIdentity(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)
	defer s.Close(ctx)

	user := uuid.New()
	if err := s.Save(ctx, user, []store.Mail{storetest.Mail("GOOD", 1)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, s.qInsert, "not-a-uuid", "BAD", "", []byte{}, int64(1), false); err != nil {
		t.Fatalf("insert bad row: %v", err)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 1 || len(all[user]) != 1 {
		t.Errorf("expected only the valid user, got %v", all)
	}
}

func TestStore_SkipsUnreadableRows(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)
	defer s.Close(ctx)

	good, damaged := uuid.New(), uuid.New()
	if err := s.Save(ctx, good, []store.Mail{storetest.Mail("GOOD", 1)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, damaged, []store.Mail{storetest.Mail("KEPT", 2)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, s.qInsert, damaged.String(), "BROKEN", "", []byte{}, "not-a-number", false); err != nil {
		t.Fatalf("insert bad row: %v", err)
	}

	t.Run("load all", func(t *testing.T) {
		all, err := s.LoadAll(ctx)
		if err != nil {
			t.Fatalf("load all: %v", err)
		}
		if len(all[good]) != 1 || all[good][0].Payload.Kind != "GOOD" {
			t.Errorf("expected the valid user intact, got %+v", all[good])
		}
		if len(all[damaged]) != 1 || all[damaged][0].Payload.Kind != "KEPT" {
			t.Errorf("expected only the readable row, got %+v", all[damaged])
		}
	})

	t.Run("load one", func(t *testing.T) {
		got, err := s.Load(ctx, damaged)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(got) != 1 || got[0].Payload.Kind != "KEPT" {
			t.Errorf("expected only the readable row, got %+v", got)
		}
	})
}

func TestStore_NilPayloadData(t *testing.T) {
	ctx := context.Background()
	s := newSQLite(t)
	defer s.Close(ctx)

	user := uuid.New()
	if err := s.Save(ctx, user, []store.Mail{{Payload: store.Payload{Kind: "AIR"}, Timestamp: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx, user)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Payload.Kind != "AIR" {
		t.Errorf("unexpected mails: %+v", got)
	}
}

func TestStore_NotConnected(t *testing.T) {
	s := New(nil)
	if _, err := s.Load(context.Background(), uuid.New()); !errors.Is(err, store.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Errorf("close of unconnected store: %v", err)
	}
}
