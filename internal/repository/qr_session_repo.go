package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spothire/internal/model"
)

// SessionRepo handles MongoDB operations for QR sessions. Lookups of unknown
// ids or codes return (nil, nil).
type SessionRepo interface {
	Create(ctx context.Context, s *model.QRSession) (string, error)
	GetByID(ctx context.Context, id string) (*model.QRSession, error)
	GetByCode(ctx context.Context, code string) (*model.QRSession, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, f model.SessionFilter) ([]*model.QRSession, error)
	Stop(ctx context.Context, id string) (*model.QRSession, error)
	IncrementScans(ctx context.Context, code string) (*model.QRSession, error)
	IncrementRegistrations(ctx context.Context, code string) (*model.QRSession, error)
}

type sessionRepo struct {
	store *Store
}

func NewSessionRepo(store *Store) SessionRepo {
	return &sessionRepo{store: store}
}

func (r *sessionRepo) coll() *mongo.Collection {
	return r.store.collection(sessionsCollection)
}

func (r *sessionRepo) Create(ctx context.Context, s *model.QRSession) (string, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	res, err := r.coll().InsertOne(ctx, s)
	if err != nil {
		return "", classify(err)
	}
	s.ID = insertedHex(res)
	return s.ID, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.QRSession, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *sessionRepo) GetByCode(ctx context.Context, code string) (*model.QRSession, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *sessionRepo) findOne(ctx context.Context, filter bson.M) (*model.QRSession, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var s model.QRSession
	err = r.coll().FindOne(ctx, filter).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &s, nil
}

func (r *sessionRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	n, err := r.coll().CountDocuments(ctx, bson.M{"code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// List returns matching sessions newest first.
func (r *sessionRepo) List(ctx context.Context, f model.SessionFilter) ([]*model.QRSession, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	filter := bson.M{}
	if f.Active != nil {
		filter["active"] = *f.Active
	}
	if f.EmployerID != "" {
		filter["employer"] = f.EmployerID
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll().Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	sessions := []*model.QRSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, classify(err)
	}
	return sessions, nil
}

// Stop clears the active flag. Stopping a stopped session rewrites the same
// value and succeeds.
func (r *sessionRepo) Stop(ctx context.Context, id string) (*model.QRSession, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"active": false}})
}

func (r *sessionRepo) IncrementScans(ctx context.Context, code string) (*model.QRSession, error) {
	return r.findOneAndUpdate(ctx, bson.M{"code": code}, bson.M{"$inc": bson.M{"stats.scans": 1}})
}

func (r *sessionRepo) IncrementRegistrations(ctx context.Context, code string) (*model.QRSession, error) {
	return r.findOneAndUpdate(ctx, bson.M{"code": code}, bson.M{"$inc": bson.M{"stats.registrations": 1}})
}

func (r *sessionRepo) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*model.QRSession, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var s model.QRSession
	err = r.coll().FindOneAndUpdate(ctx, filter, update, opts).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &s, nil
}
