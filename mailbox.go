package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ninepin/mailbox/store"
	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// ServiceHealth reports lifecycle state.
type ServiceHealth interface {
	// IsConnected reports whether mutations are accepted.
	IsConnected() bool
}

// MailboxReader provides read-only access to resident mailboxes.
// Reads never touch the backend and work whether or not the service is
// connected.
type MailboxReader interface {
	// IsResident reports whether the user's mailbox is in memory.
	IsResident(user uuid.UUID) bool
	// Users returns the resident users in no particular order.
	Users() []uuid.UUID
	// Len returns the number of items in the user's mailbox, 0 when absent.
	Len(user uuid.UUID) int
	// Mails returns a copy of the user's mailbox, newest first. Never nil.
	Mails(user uuid.UUID) []store.Mail
	// Mail returns a copy of the item at index.
	Mail(user uuid.UUID, index int) (store.Mail, bool)
	// UnreadCount returns the number of unread items, 0 when absent.
	UnreadCount(user uuid.UUID) int
}

// MailboxLoader makes mailboxes resident.
type MailboxLoader interface {
	// LoadAll reads every mailbox from the backend. Users already resident
	// keep their in-memory state.
	LoadAll(ctx context.Context) error
	// EnsureLoaded loads the user's mailbox once per process lifetime.
	EnsureLoaded(ctx context.Context, user uuid.UUID) error
}

// MailboxMutator changes mailbox contents. Every mutation is written through
// to the backend; a failed write returns *PersistError with the in-memory
// change kept.
type MailboxMutator interface {
	Deliver(ctx context.Context, user uuid.UUID, payload store.Payload) (store.Mail, error)
	DeliverAll(ctx context.Context, payload store.Payload) (*BulkResult, error)
	RemoveAt(ctx context.Context, user uuid.UUID, index int) (store.Mail, bool, error)
	Claim(ctx context.Context, user uuid.UUID, index int, give func(store.Mail) bool) (ClaimOutcome, error)
}

// MailboxPersister saves resident mailboxes.
type MailboxPersister interface {
	Save(ctx context.Context, user uuid.UUID) error
	SaveAll(ctx context.Context) (*SaveResult, error)
}

// Service manages every user's mailbox.
//
// Composed of:
//   - ServiceHealth: IsConnected
//   - MailboxReader: In-memory reads
//   - MailboxLoader: Backend population
//   - MailboxMutator: Deliver, remove, claim
//   - MailboxPersister: Explicit saves
type Service interface {
	ServiceHealth
	MailboxReader
	MailboxLoader
	MailboxMutator
	MailboxPersister

	// Connect connects the backend, the event bus and plugins, and starts
	// the autosave worker.
	Connect(ctx context.Context) error
	// Close stops autosave, saves every resident mailbox and releases
	// resources.
	Close(ctx context.Context) error
	// Events returns per-service event instances for subscribing.
	Events() *ServiceEvents
}

const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// mailbox is one user's resident state. mu guards mails; saveMu serializes
// backend writes of this user.
type mailbox struct {
	mu     sync.Mutex
	saveMu sync.Mutex
	mails  []store.Mail
}

type service struct {
	store    store.Store
	logger   *slog.Logger
	opts     *options
	state    int32 // stateDisconnected, stateConnecting, or stateConnected
	plugins  *pluginRegistry
	otel     *otelInstrumentation
	opSem    *semaphore.Weighted // Bounds in-flight mutations; Close drains it
	eventBus *event.Bus          // Event bus for publishing events
	events   *ServiceEvents      // Per-service event instances

	mu        sync.RWMutex
	mailboxes map[uuid.UUID]*mailbox
	loads     singleflight.Group

	autosave *autosaver
}

var _ Service = (*service)(nil)

// NewService builds a service. Nothing is loaded until Connect and LoadAll
// or EnsureLoaded.
// Call Connect() before any operation that reaches the backend.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		return nil, ErrStoreRequired
	}

	plugins := newPluginRegistry(o.logger)
	for _, p := range o.plugins {
		plugins.register(p)
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	return &service{
		store:     o.store,
		logger:    o.logger,
		opts:      o,
		plugins:   plugins,
		otel:      otelInstr,
		opSem:     semaphore.NewWeighted(int64(o.maxConcurrentOps)),
		mailboxes: make(map[uuid.UUID]*mailbox),
	}, nil
}

// Events exposes the typed MailDelivered and MailRemoved events.
// Nil until Connect succeeds.
func (s *service) Events() *ServiceEvents {
	return s.events
}

func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// Connect establishes connections to the storage backend.
func (s *service) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	if err := s.initEventBus(ctx); err != nil {
		_ = s.store.Close(ctx)
		return fmt.Errorf("init event bus: %w", err)
	}

	if err := s.plugins.initAll(ctx); err != nil {
		s.closeEventBus(ctx)
		_ = s.store.Close(ctx)
		return fmt.Errorf("init plugins: %w", err)
	}

	if s.opts.autosaveInterval > 0 {
		s.autosave = startAutosave(s, s.opts.autosaveInterval)
	}

	success = true
	s.logger.Info("mailbox service connected", "autosave", s.opts.autosaveInterval)
	return nil
}

var busCounter int64

// initEventBus creates this service's bus and registers its events.
func (s *service) initEventBus(ctx context.Context) error {
	serviceName := s.opts.serviceName
	if serviceName == "" {
		serviceName = "mailbox"
	}
	// bus names are process-global
	busName := fmt.Sprintf("%s-%d", serviceName, atomic.AddInt64(&busCounter, 1))

	var bus *event.Bus
	var err error

	switch {
	case s.opts.eventTransport != nil:
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
	case s.opts.redisClient != nil:
		s.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}

	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		_ = bus.Close(ctx)
		return fmt.Errorf("register service events: %w", err)
	}

	return nil
}

// closeEventBus closes the bus when it holds a real transport.
func (s *service) closeEventBus(ctx context.Context) error {
	if s.eventBus == nil || (s.opts.eventTransport == nil && s.opts.redisClient == nil) {
		return nil
	}
	return s.eventBus.Close(ctx)
}

// Close saves every resident mailbox and closes the backend.
// Closing a service that is not connected is a no-op.
func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	if s.autosave != nil {
		s.autosave.stop()
		s.autosave = nil
	}

	// New mutations fail with ErrNotConnected from here on. Acquiring every
	// slot waits for the ones already running.
	slots := int64(s.opts.maxConcurrentOps)
	s.logger.Info("waiting for in-flight operations to complete...", "timeout", s.opts.shutdownTimeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer shutdownCancel()
	if err := s.opSem.Acquire(shutdownCtx, slots); err != nil {
		s.logger.Warn("timeout waiting for in-flight operations, proceeding with shutdown",
			"error", err)
		errs = append(errs, fmt.Errorf("graceful shutdown timeout: %w", err))
	} else {
		s.opSem.Release(slots)
		s.logger.Info("all in-flight operations completed")
	}

	if res, err := s.saveAll(ctx, saveTriggerShutdown); err != nil {
		errs = append(errs, fmt.Errorf("final save: %w", err))
	} else {
		s.logger.Info("saved all mailboxes", "saved", res.Saved)
	}

	if err := s.plugins.closeAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close plugins: %w", err))
	}

	if err := s.closeEventBus(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close event bus: %w", err))
	}

	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

// begin admits a mutating operation. The returned func must be called when
// the operation ends.
func (s *service) begin(ctx context.Context) (func(), error) {
	if !s.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := s.opSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	// Close may have won the race while we waited.
	if !s.IsConnected() {
		s.opSem.Release(1)
		return nil, ErrNotConnected
	}
	return func() { s.opSem.Release(1) }, nil
}

// resident returns the user's mailbox or nil.
func (s *service) resident(user uuid.UUID) *mailbox {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mailboxes[user]
}
