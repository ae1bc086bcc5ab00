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

type CandidateRepo interface {
	Find(ctx context.Context, f model.CandidateFilter) ([]model.Candidate, error)
	Create(ctx context.Context, c *model.Candidate) (string, error)
	UpdateStatus(ctx context.Context, id string, status model.CandidateStatus, note *string) (*model.Candidate, error)
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, cs []model.Candidate) error
}

type candidateRepo struct {
	store *Store
}

func NewCandidateRepo(store *Store) CandidateRepo {
	return &candidateRepo{store: store}
}

func (r *candidateRepo) coll() *mongo.Collection {
	return r.store.collection(candidatesCollection)
}

func candidateQuery(f model.CandidateFilter) bson.M {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = exactFold(f.Role)
	}
	if f.Area != "" {
		q["area"] = exactFold(f.Area)
	}
	if f.Education != "" {
		q["education"] = exactFold(f.Education)
	}
	if f.ActiveToday != nil {
		q["activeToday"] = *f.ActiveToday
	}
	if f.AppliedToSimilar != nil {
		q["appliedToSimilar"] = *f.AppliedToSimilar
	}
	return q
}

// Find returns candidates in insertion order.
func (r *candidateRepo) Find(ctx context.Context, f model.CandidateFilter) ([]model.Candidate, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cursor, err := r.coll().Find(ctx, candidateQuery(f.Normalized()), opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	out := []model.Candidate{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *candidateRepo) Create(ctx context.Context, c *model.Candidate) (string, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Status == "" {
		c.Status = model.StatusNew
	}

	res, err := r.coll().InsertOne(ctx, c)
	if err != nil {
		return "", classify(err)
	}
	c.ID = insertedHex(res)
	return c.ID, nil
}

// UpdateStatus sets status and, when note is non-nil, the note. Unknown ids
// return (nil, nil).
func (r *candidateRepo) UpdateStatus(ctx context.Context, id string, status model.CandidateStatus, note *string) (*model.Candidate, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	set := bson.M{"status": status}
	if note != nil {
		set["note"] = *note
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var c model.Candidate
	err = r.coll().FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

func (r *candidateRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	n, err := r.coll().CountDocuments(ctx, bson.M{})
	return n, classify(err)
}

func (r *candidateRepo) InsertMany(ctx context.Context, cs []model.Candidate) error {
	if len(cs) == 0 {
		return nil
	}
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	docs := make([]interface{}, len(cs))
	now := time.Now().UTC()
	for i := range cs {
		if cs[i].CreatedAt.IsZero() {
			cs[i].CreatedAt = now
		}
		docs[i] = cs[i]
	}
	_, err = r.coll().InsertMany(ctx, docs)
	return classify(err)
}
