package reportsvc

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "github.com/rugvedkadu06/aggrigator/internal/api/base/service"
	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	"github.com/rugvedkadu06/aggrigator/internal/common"
)

const stagingInfix = "__staging_"

// ViewStore is the storage the Materializer and SnapshotReader work against.
type ViewStore interface {
	// TargetName is the live view collection.
	TargetName() string
	// ListStaging returns staging collections left behind for the target.
	ListStaging(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string) error
	DropCollection(ctx context.Context, name string) error
	InsertViews(ctx context.Context, collection string, views []models.ReportView) (int, error)
	CountViews(ctx context.Context, collection string) (int64, error)
	CreateIndexes(ctx context.Context, collection string) error
	// Promote atomically replaces the target with the staging collection.
	Promote(ctx context.Context, staging string) error
	// LoadState returns nil, nil when no marker exists yet.
	LoadState(ctx context.Context) (*models.SyncState, error)
	SaveState(ctx context.Context, state models.SyncState) error
	FindViews(ctx context.Context, filter models.ReportViewFilter) ([]models.ReportView, error)
}

// StagingName is the staging collection of one run of target. The creation
// time is part of the name so leftovers can be aged without extra bookkeeping.
func StagingName(target, runID string, createdAt time.Time) string {
	return target + stagingInfix + strconv.FormatInt(createdAt.UnixMilli(), 10) + "_" + runID
}

// stagingCreatedAt parses the creation time out of a StagingName. ok is false
// for names that do not carry one.
func stagingCreatedAt(target, name string) (time.Time, bool) {
	rest, found := strings.CutPrefix(name, target+stagingInfix)
	if !found {
		return time.Time{}, false
	}
	millis, _, found := strings.Cut(rest, "_")
	if !found {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// MongoViewStore keeps views and the sync marker in one MongoDB database.
type MongoViewStore struct {
	client *mongo.Client
	db     *mongo.Database
	target string
	states *basesvc.BaseServiceMongoImpl[models.SyncState]
}

func NewMongoViewStore(client *mongo.Client, dbName, target, stateCollection string) *MongoViewStore {
	db := client.Database(dbName)
	return &MongoViewStore{
		client: client,
		db:     db,
		target: target,
		states: basesvc.NewBaseServiceMongo[models.SyncState](db.Collection(stateCollection)),
	}
}

func (s *MongoViewStore) TargetName() string {
	return s.target
}

func (s *MongoViewStore) ListStaging(ctx context.Context) ([]string, error) {
	filter := bson.M{"name": bson.M{"$regex": "^" + regexp.QuoteMeta(s.target+stagingInfix)}}
	names, err := s.db.ListCollectionNames(ctx, filter)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	return names, nil
}

func (s *MongoViewStore) CreateCollection(ctx context.Context, name string) error {
	if err := s.db.CreateCollection(ctx, name); err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}

func (s *MongoViewStore) DropCollection(ctx context.Context, name string) error {
	if err := s.db.Collection(name).Drop(ctx); err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}

func (s *MongoViewStore) InsertViews(ctx context.Context, collection string, views []models.ReportView) (int, error) {
	return basesvc.NewBaseServiceMongo[models.ReportView](s.db.Collection(collection)).InsertMany(ctx, views)
}

func (s *MongoViewStore) CountViews(ctx context.Context, collection string) (int64, error) {
	return basesvc.NewBaseServiceMongo[models.ReportView](s.db.Collection(collection)).CountDocuments(ctx, nil)
}

func (s *MongoViewStore) CreateIndexes(ctx context.Context, collection string) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("createdAt_desc")},
		{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("userId_1")},
		{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status_1")},
	}
	if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}

// Promote runs renameCollection with dropTarget, which MongoDB applies atomically.
func (s *MongoViewStore) Promote(ctx context.Context, staging string) error {
	cmd := bson.D{
		{Key: "renameCollection", Value: s.db.Name() + "." + staging},
		{Key: "to", Value: s.db.Name() + "." + s.target},
		{Key: "dropTarget", Value: true},
	}
	if err := s.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}

func (s *MongoViewStore) LoadState(ctx context.Context) (*models.SyncState, error) {
	state, err := s.states.FindOne(ctx, bson.M{"_id": s.target}, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (s *MongoViewStore) SaveState(ctx context.Context, state models.SyncState) error {
	state.ID = s.target
	_, err := s.states.Collection().ReplaceOne(ctx, bson.M{"_id": s.target}, state, options.Replace().SetUpsert(true))
	if err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}

func (s *MongoViewStore) FindViews(ctx context.Context, filter models.ReportViewFilter) ([]models.ReportView, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["userId"] = *filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	views, err := basesvc.NewBaseServiceMongo[models.ReportView](s.db.Collection(s.target)).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.target, err)
	}
	return views, nil
}
