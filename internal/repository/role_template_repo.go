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

// TemplateRepo handles MongoDB operations for role templates. Names are
// unique case-insensitively; inserting a duplicate returns common.ErrConflict.
type TemplateRepo interface {
	List(ctx context.Context) ([]model.RoleTemplate, error)
	GetByID(ctx context.Context, id string) (*model.RoleTemplate, error)
	GetByName(ctx context.Context, name string) (*model.RoleTemplate, error)
	Create(ctx context.Context, t *model.RoleTemplate) (string, error)
	Replace(ctx context.Context, t *model.RoleTemplate) error
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, ts []model.RoleTemplate) error
}

type templateRepo struct {
	store *Store
}

func NewTemplateRepo(store *Store) TemplateRepo {
	return &templateRepo{store: store}
}

func (r *templateRepo) coll() *mongo.Collection {
	return r.store.collection(templatesCollection)
}

func (r *templateRepo) List(ctx context.Context) ([]model.RoleTemplate, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.coll().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cursor.Close(ctx)

	out := []model.RoleTemplate{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *templateRepo) GetByID(ctx context.Context, id string) (*model.RoleTemplate, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *templateRepo) GetByName(ctx context.Context, name string) (*model.RoleTemplate, error) {
	return r.findOne(ctx, bson.M{"name": exactFold(name)})
}

func (r *templateRepo) findOne(ctx context.Context, filter bson.M) (*model.RoleTemplate, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var t model.RoleTemplate
	err = r.coll().FindOne(ctx, filter).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &t, nil
}

func (r *templateRepo) Create(ctx context.Context, t *model.RoleTemplate) (string, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	res, err := r.coll().InsertOne(ctx, t)
	if err != nil {
		return "", classify(err)
	}
	t.ID = insertedHex(res)
	return t.ID, nil
}

func (r *templateRepo) Replace(ctx context.Context, t *model.RoleTemplate) error {
	oid, err := primitive.ObjectIDFromHex(t.ID)
	if err != nil {
		return nil
	}

	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	_, err = r.coll().UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":                t.Name,
		"salaryMin":           t.SalaryMin,
		"salaryMax":           t.SalaryMax,
		"workHours":           t.WorkHours,
		"defaultRequirements": t.Requirements,
	}})
	return classify(err)
}

func (r *templateRepo) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}

	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	res, err := r.coll().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, classify(err)
	}
	return res.DeletedCount > 0, nil
}

func (r *templateRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	n, err := r.coll().CountDocuments(ctx, bson.M{})
	return n, classify(err)
}

func (r *templateRepo) InsertMany(ctx context.Context, ts []model.RoleTemplate) error {
	if len(ts) == 0 {
		return nil
	}
	ctx, cancel, err := r.store.op(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	docs := make([]interface{}, len(ts))
	now := time.Now().UTC()
	for i := range ts {
		if ts[i].CreatedAt.IsZero() {
			ts[i].CreatedAt = now
		}
		docs[i] = ts[i]
	}
	_, err = r.coll().InsertMany(ctx, docs)
	return classify(err)
}
