package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"spothire/internal/common"
)

// classify maps driver errors onto the common taxonomy. Errors that do not
// fit a kind are returned unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrUnavailable):
		return err
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", common.Conflict("duplicate key"), err)
	case errors.Is(err, context.DeadlineExceeded),
		mongo.IsTimeout(err),
		mongo.IsNetworkError(err),
		errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", common.Unavailable("database unavailable"), err)
	default:
		return err
	}
}

// exactFold matches the whole field case-insensitively.
func exactFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func insertedHex(res *mongo.InsertOneResult) string {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return ""
}
