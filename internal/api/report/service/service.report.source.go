package reportsvc

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "github.com/rugvedkadu06/aggrigator/internal/api/base/service"
	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	"github.com/rugvedkadu06/aggrigator/internal/registry"
)

// SourceReader reads the four source record types. Every method returns all
// matching records in insertion order (_id ascending) and never retries.
// An empty id list means no scoping.
type SourceReader interface {
	FindReporters(ctx context.Context, ids []primitive.ObjectID) ([]models.Reporter, error)
	FindReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	FindFlags(ctx context.Context, reportIDs []primitive.ObjectID) ([]models.Flag, error)
	FindDetections(ctx context.Context, reportIDs []primitive.ObjectID) ([]models.Detection, error)
}

// SourceCollections names the source collections.
type SourceCollections struct {
	Reporters  string
	Reports    string
	Flags      string
	Detections string
}

func (c SourceCollections) Names() []string {
	return []string{c.Reporters, c.Reports, c.Flags, c.Detections}
}

// MongoSourceStore is the SourceReader over MongoDB.
type MongoSourceStore struct {
	reporters  *basesvc.BaseServiceMongoImpl[models.Reporter]
	reports    *basesvc.BaseServiceMongoImpl[models.Report]
	flags      *basesvc.BaseServiceMongoImpl[models.Flag]
	detections *basesvc.BaseServiceMongoImpl[models.Detection]
}

// NewMongoSourceStore looks the four collections up in cols.
func NewMongoSourceStore(cols *registry.Registry[*mongo.Collection], names SourceCollections) (*MongoSourceStore, error) {
	get := func(name string) (*mongo.Collection, error) {
		col, err := cols.MustGet(name)
		if err != nil {
			return nil, fmt.Errorf("source collection: %w", err)
		}
		return col, nil
	}

	reporters, err := get(names.Reporters)
	if err != nil {
		return nil, err
	}
	reports, err := get(names.Reports)
	if err != nil {
		return nil, err
	}
	flags, err := get(names.Flags)
	if err != nil {
		return nil, err
	}
	detections, err := get(names.Detections)
	if err != nil {
		return nil, err
	}

	return &MongoSourceStore{
		reporters:  basesvc.NewBaseServiceMongo[models.Reporter](reporters),
		reports:    basesvc.NewBaseServiceMongo[models.Report](reports),
		flags:      basesvc.NewBaseServiceMongo[models.Flag](flags),
		detections: basesvc.NewBaseServiceMongo[models.Detection](detections),
	}, nil
}

func insertionOrder() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
}

func (s *MongoSourceStore) FindReporters(ctx context.Context, ids []primitive.ObjectID) ([]models.Reporter, error) {
	projection := bson.M{}
	for _, field := range models.ReporterInternalFields {
		projection[field] = 0
	}
	opts := insertionOrder().SetProjection(projection)

	if len(ids) > 0 {
		return s.reporters.FindManyByIds(ctx, ids, opts)
	}
	return s.reporters.Find(ctx, nil, opts)
}

func (s *MongoSourceStore) FindReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	query := bson.M{}
	if filter.ReporterID != nil {
		query["userId"] = *filter.ReporterID
	}
	return s.reports.Find(ctx, query, insertionOrder().SetProjection(bson.M{"__v": 0}))
}

func (s *MongoSourceStore) FindFlags(ctx context.Context, reportIDs []primitive.ObjectID) ([]models.Flag, error) {
	return s.flags.Find(ctx, byReportIDs(reportIDs), insertionOrder().SetProjection(bson.M{"__v": 0}))
}

func (s *MongoSourceStore) FindDetections(ctx context.Context, reportIDs []primitive.ObjectID) ([]models.Detection, error) {
	return s.detections.Find(ctx, byReportIDs(reportIDs), insertionOrder().SetProjection(bson.M{"__v": 0}))
}

func byReportIDs(ids []primitive.ObjectID) bson.M {
	if len(ids) == 0 {
		return bson.M{}
	}
	return bson.M{"reportId": bson.M{"$in": ids}}
}
