package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"spothire/internal/common"
	"spothire/internal/model"
)

func sessionDoc(id primitive.ObjectID, code string, active bool, scans int64) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "code", Value: code},
		{Key: "employer", Value: "emp1"},
		{Key: "active", Value: active},
		{Key: "stats", Value: bson.D{{Key: "scans", Value: scans}, {Key: "registrations", Value: int64(0)}}},
		{Key: "createdAt", Value: primitive.NewDateTimeFromTime(time.Now())},
	}
}

func TestSessionRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create assigns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewSessionRepo(NewStore(mt.DB, time.Second))

		s := &model.QRSession{Code: "ABC234", EmployerID: "emp1", Active: true}
		id, err := repo.Create(context.Background(), s)
		require.NoError(mt, err)
		assert.Len(mt, id, 24)
		assert.Equal(mt, id, s.ID)
		assert.False(mt, s.CreatedAt.IsZero())
	})

	mt.Run("duplicate code is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))
		repo := NewSessionRepo(NewStore(mt.DB, time.Second))

		_, err := repo.Create(context.Background(), &model.QRSession{Code: "ABC234"})
		assert.ErrorIs(mt, err, common.ErrConflict)
	})

	mt.Run("increment scans returns updated session", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: sessionDoc(oid, "ABC234", false, 3)},
		})
		repo := NewSessionRepo(NewStore(mt.DB, time.Second))

		s, err := repo.IncrementScans(context.Background(), "ABC234")
		require.NoError(mt, err)
		require.NotNil(mt, s)
		assert.Equal(mt, oid.Hex(), s.ID)
		assert.Equal(mt, int64(3), s.Stats.Scans)
		assert.False(mt, s.Active)
	})

	mt.Run("list decodes newest first order from server", func(mt *mtest.T) {
		a, b := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "spothire.qr_sessions", mtest.FirstBatch,
			sessionDoc(b, "BBBBBB", true, 0),
			sessionDoc(a, "AAAAAA", true, 0),
		))
		repo := NewSessionRepo(NewStore(mt.DB, time.Second))

		got, err := repo.List(context.Background(), model.SessionFilter{Active: model.Bool(true)})
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "BBBBBB", got[0].Code)
	})

	mt.Run("malformed id is unknown", func(mt *mtest.T) {
		repo := NewSessionRepo(NewStore(mt.DB, time.Second))

		s, err := repo.Stop(context.Background(), "not-an-object-id")
		assert.NoError(mt, err)
		assert.Nil(mt, s)
	})
}

func TestCandidateQuery(t *testing.T) {
	q := candidateQuery(model.CandidateFilter{Role: "helper", ActiveToday: model.Bool(true)})

	assert.Equal(t, exactFold("helper"), q["role"])
	assert.Equal(t, true, q["activeToday"])
	assert.NotContains(t, q, "area")
	assert.NotContains(t, q, "appliedToSimilar")
}
