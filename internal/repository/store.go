package repository

import (
	"context"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spothire/internal/common"
	"spothire/internal/logging"
)

const (
	sessionsCollection   = "qr_sessions"
	candidatesCollection = "candidates"
	templatesCollection  = "role_templates"
)

// Store wraps the Mongo database with a per-call timeout and an availability
// flag. When the flag is down every repository call fails fast with
// common.ErrUnavailable instead of waiting for server selection.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	online  atomic.Bool
	indexed atomic.Bool
}

// NewStore wraps an already connected database and marks it online.
func NewStore(db *mongo.Database, timeout time.Duration) *Store {
	s := &Store{db: db, timeout: timeout}
	if db != nil {
		s.client = db.Client()
		s.online.Store(true)
	}
	return s
}

// Connect opens a client for uri. An empty uri or a failed first ping is not
// an error: the store starts offline and Monitor brings it online later.
func Connect(ctx context.Context, uri, database string, timeout time.Duration, log logging.Logger) (*Store, error) {
	if uri == "" {
		log.Warn(ctx, "MONGO_URI not set, running on seed data only")
		return &Store{timeout: timeout}, nil
	}

	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	s := &Store{client: client, db: client.Database(database), timeout: timeout}
	s.ping(ctx, log)
	return s, nil
}

func (s *Store) Online() bool {
	return s.online.Load()
}

func (s *Store) Database() *mongo.Database {
	return s.db
}

func (s *Store) collection(name string) *mongo.Collection {
	if s.db == nil {
		return nil
	}
	return s.db.Collection(name)
}

// op bounds one persistence call by the store timeout.
func (s *Store) op(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if s.db == nil || !s.online.Load() {
		return nil, nil, common.Unavailable("database unavailable")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, cancel, nil
}

// Monitor pings the server every interval and flips the availability flag.
// It returns when ctx is done.
func (s *Store) Monitor(ctx context.Context, interval time.Duration, log logging.Logger) {
	if s.client == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ping(ctx, log)
		}
	}
}

func (s *Store) ping(ctx context.Context, log logging.Logger) {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.client.Ping(pingCtx, nil)
	was := s.online.Swap(err == nil)
	switch {
	case err == nil && !was:
		log.Info(ctx, "connected to MongoDB")
	case err != nil && was:
		log.Warn(ctx, "lost MongoDB connection", "error", err)
	case err != nil:
		log.Debug(ctx, "MongoDB still unreachable", "error", err)
	}

	if err == nil && !s.indexed.Load() {
		if err := s.EnsureIndexes(ctx); err != nil {
			log.Warn(ctx, "failed to ensure indexes", "error", err)
		}
	}
}

// EnsureIndexes creates the unique code and template name indexes. The
// availability monitor calls it until it succeeds once.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel, err := s.op(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = s.collection(sessionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "employer", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return classify(err)
	}

	_, err = s.collection(templatesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).
			SetCollation(&options.Collation{Locale: "en", Strength: 2}),
	})
	if err != nil {
		return classify(err)
	}

	_, err = s.collection(candidatesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "role", Value: 1}},
	})
	if err != nil {
		return classify(err)
	}
	s.indexed.Store(true)
	return nil
}

func (s *Store) Disconnect(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
