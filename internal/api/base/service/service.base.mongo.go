// Package basesvc provides the generic MongoDB access layer the domain services build on.
package basesvc

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rugvedkadu06/aggrigator/internal/common"
)

// BaseServiceMongo is the set of collection operations shared by every model.
type BaseServiceMongo[T any] interface {
	Collection() *mongo.Collection
	FindOne(ctx context.Context, filter any, opts *options.FindOneOptions) (T, error)
	Find(ctx context.Context, filter any, opts *options.FindOptions) ([]T, error)
	FindManyByIds(ctx context.Context, ids []primitive.ObjectID, opts *options.FindOptions) ([]T, error)
	CountDocuments(ctx context.Context, filter any) (int64, error)
	InsertMany(ctx context.Context, data []T) (int, error)
}

// BaseServiceMongoImpl implements BaseServiceMongo on one collection.
type BaseServiceMongoImpl[T any] struct {
	collection *mongo.Collection
}

func NewBaseServiceMongo[T any](collection *mongo.Collection) *BaseServiceMongoImpl[T] {
	return &BaseServiceMongoImpl[T]{
		collection: collection,
	}
}

// Collection returns the underlying collection for callers that need driver access.
func (s *BaseServiceMongoImpl[T]) Collection() *mongo.Collection {
	return s.collection
}

// FindOne returns common.ErrNotFound when nothing matches.
func (s *BaseServiceMongoImpl[T]) FindOne(ctx context.Context, filter any, opts *options.FindOneOptions) (T, error) {
	var zero T
	var result T

	if filter == nil {
		filter = bson.D{}
	}
	if opts == nil {
		opts = options.FindOne()
	}

	findResult := s.collection.FindOne(ctx, filter, opts)
	if err := findResult.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, common.ErrNotFound
		}
		return zero, common.ConvertMongoError(err)
	}
	if err := findResult.Decode(&result); err != nil {
		return zero, common.NewError(
			common.ErrCodeValidationFormat,
			"Failed to decode document from MongoDB",
			common.StatusInternalServerError,
			err,
		)
	}
	return result, nil
}

// Find returns every matching document. The result is never nil.
func (s *BaseServiceMongoImpl[T]) Find(ctx context.Context, filter any, opts *options.FindOptions) ([]T, error) {
	if filter == nil {
		filter = bson.D{}
	} else if filterMap, ok := filter.(map[string]any); ok && len(filterMap) == 0 {
		filter = bson.D{}
	}
	if opts == nil {
		opts = options.Find()
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var results []T
	if err = cursor.All(ctx, &results); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	if results == nil {
		results = []T{}
	}
	return results, nil
}

// FindManyByIds finds the documents whose _id is in ids.
func (s *BaseServiceMongoImpl[T]) FindManyByIds(ctx context.Context, ids []primitive.ObjectID, opts *options.FindOptions) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}
	return s.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
}

func (s *BaseServiceMongoImpl[T]) CountDocuments(ctx context.Context, filter any) (int64, error) {
	if filter == nil {
		filter = bson.D{}
	}
	count, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, common.ConvertMongoError(err)
	}
	return count, nil
}

// InsertMany writes data as-is in one ordered batch and returns the number inserted.
// Unlike the write helpers of mutable collections it does not stamp timestamps:
// callers insert fully built documents.
func (s *BaseServiceMongoImpl[T]) InsertMany(ctx context.Context, data []T) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	documents := make([]any, len(data))
	for i := range data {
		documents[i] = data[i]
	}
	result, err := s.collection.InsertMany(ctx, documents, options.InsertMany().SetOrdered(true))
	if err != nil {
		inserted := 0
		if result != nil {
			inserted = len(result.InsertedIDs)
		}
		return inserted, common.ConvertMongoError(err)
	}
	return len(result.InsertedIDs), nil
}
