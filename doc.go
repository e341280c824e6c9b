// Package mailbox keeps a per-user mailbox of deliverable items for a game
// host.
//
// Each user, identified by a uuid.UUID, owns an ordered list of items held in
// memory, newest first. Administrators deliver items to one user or to every
// resident user; owners claim them into their inventory. Every mutation is
// written through to a pluggable storage backend, and a periodic autosave plus
// a final save on Close keep the backend in step with memory.
//
// # Basic Usage
//
//	svc, err := mailbox.NewService(
//	    mailbox.WithStore(memory.New()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	if err := svc.LoadAll(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	mail, err := svc.Deliver(ctx, user, store.Payload{Kind: "DIAMOND_SWORD", Data: blob})
//	if pe, ok := mailbox.IsPersistError(err); ok {
//	    // delivered in memory, the backend write failed
//	    log.Printf("persist %s: %v", pe.User, pe.Err)
//	}
//
//	outcome, err := svc.Claim(ctx, user, 0, func(m store.Mail) bool {
//	    return inventory.Give(m.Payload)
//	})
//
// # Storage Backends
//
// The store package defines the contract; implementations live under it:
//   - Relational (store/sqlstore) - MySQL, PostgreSQL, SQLite via sqlx
//   - Document per user (store/document) - directory, bbolt, Redis, S3, GCS buckets
//   - MongoDB (store/mongo)
//   - In-memory (store/memory) - for testing
//
// store/otel wraps any of them with tracing and metrics.
//
// # Events
//
// The service publishes MailDelivered and MailRemoved through
// github.com/rbaliyan/event/v3. Without WithRedisClient or
// WithEventTransport the events go to a noop transport.
//
//	svc.Events().MailDelivered.Subscribe(ctx, handler)
//	svc.Events().MailRemoved.Subscribe(ctx, handler)
//
// # Concurrency
//
// All methods are safe for concurrent use. Saves of one user are serialized
// and each takes its snapshot inside that serialization, so the last snapshot
// taken is the one left in the backend.
package mailbox
