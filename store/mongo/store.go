// Package mongo provides a MongoDB implementation of store.Store. Each user's
// mailbox is one document whose _id is the user identity.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	opts       *options
	connected  int32
	logger     *slog.Logger
}

type mailboxDoc struct {
	ID        string       `bson:"_id"`
	Mails     []store.Mail `bson:"mails"`
	UpdatedAt time.Time    `bson:"updated_at"`
}

// New creates a new MongoDB store with the provided client. The store owns
// the client and disconnects it in Close.
func New(client *mongo.Client, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		client: client,
		opts:   o,
		logger: o.logger,
	}
}

// Dial creates a client for uri. It does not contact the server; Connect
// pings it.
func Dial(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(mongoopts.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return client, nil
}

// Connect pings the server and binds the collection.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	if s.client == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("mongo: client is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("mongo ping: %w", err)
	}

	s.collection = s.client.Database(s.opts.database).Collection(s.opts.collection)
	s.logger.Info("connected to MongoDB", "database", s.opts.database, "collection", s.opts.collection)
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// Load returns the user's mailbox, empty when no document exists.
func (s *Store) Load(ctx context.Context, user uuid.UUID) ([]store.Mail, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc mailboxDoc
	err := s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: user.String()}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []store.Mail{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find mailbox: %w", err)
	}
	if doc.Mails == nil {
		return []store.Mail{}, nil
	}
	return doc.Mails, nil
}

// LoadAll iterates every mailbox document. Documents that fail to decode or
// whose _id is not a user identity are skipped with a warning.
func (s *Store) LoadAll(ctx context.Context) (map[uuid.UUID][]store.Mail, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find mailboxes: %w", err)
	}
	defer cursor.Close(ctx)

	out := make(map[uuid.UUID][]store.Mail)
	for cursor.Next(ctx) {
		var doc mailboxDoc
		if err := cursor.Decode(&doc); err != nil {
			s.logger.Warn("skipping undecodable mailbox document", "error", err)
			continue
		}
		user, err := uuid.Parse(doc.ID)
		if err != nil {
			s.logger.Warn("skipping mailbox document with invalid user identity", "id", doc.ID, "error", err)
			continue
		}
		if doc.Mails == nil {
			doc.Mails = []store.Mail{}
		}
		out[user] = doc.Mails
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate mailboxes: %w", err)
	}
	return out, nil
}

// Save replaces the user's document, creating it if needed.
func (s *Store) Save(ctx context.Context, user uuid.UUID, mails []store.Mail) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := store.ValidUser(user); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if mails == nil {
		mails = []store.Mail{}
	}
	doc := mailboxDoc{ID: user.String(), Mails: mails, UpdatedAt: time.Now().UTC()}
	_, err := s.collection.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: doc.ID}},
		doc,
		mongoopts.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("replace mailbox: %w", err)
	}
	return nil
}

// SaveAll upserts every mailbox with unordered bulk writes of at most
// WithBatchSize documents. Batches already written stay written when a later
// one fails.
func (s *Store) SaveAll(ctx context.Context, all map[uuid.UUID][]store.Mail) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	now := time.Now().UTC()
	batch := make([]mongo.WriteModel, 0, min(len(all), s.opts.batchSize))
	for user, mails := range all {
		if err := store.ValidUser(user); err != nil {
			return err
		}
		if mails == nil {
			mails = []store.Mail{}
		}
		batch = append(batch, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: user.String()}}).
			SetReplacement(mailboxDoc{ID: user.String(), Mails: mails, UpdatedAt: now}).
			SetUpsert(true))
		if len(batch) == s.opts.batchSize {
			if err := s.bulkWrite(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return s.bulkWrite(ctx, batch)
}

func (s *Store) bulkWrite(ctx context.Context, models []mongo.WriteModel) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if _, err := s.collection.BulkWrite(ctx, models, mongoopts.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("bulk replace %d mailboxes: %w", len(models), err)
	}
	return nil
}
