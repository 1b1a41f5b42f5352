package reportsvc

import (
	"context"
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/pool"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
)

// JoinScope restricts a join to one reporter's reports. The zero value joins everything.
type JoinScope struct {
	ReporterID *primitive.ObjectID
}

// JoinResult is the output of one join pass: the views newest first plus the
// number of source records read.
type JoinResult struct {
	Views      []models.ReportView
	Reporters  int
	Reports    int
	Flags      int
	Detections int
}

// JoinEngine correlates reports with their reporter, flags and detections.
// It holds no state and is safe for concurrent use.
type JoinEngine struct {
	source SourceReader
}

func NewJoinEngine(source SourceReader) *JoinEngine {
	return &JoinEngine{source: source}
}

// Build produces exactly one view per report in scope. Missing reporters and
// dangling flag or detection references are not errors; only store errors are.
func (e *JoinEngine) Build(ctx context.Context, scope JoinScope) (*JoinResult, error) {
	reports, err := e.source.FindReports(ctx, models.ReportFilter{ReporterID: scope.ReporterID})
	if err != nil {
		return nil, fmt.Errorf("fetch reports: %w", err)
	}

	scoped := scope.ReporterID != nil
	if scoped && len(reports) == 0 {
		return &JoinResult{Views: []models.ReportView{}}, nil
	}

	// Unscoped passes read whole collections; scoped ones only what the reports reference.
	var reportIDs, userIDs []primitive.ObjectID
	if scoped {
		reportIDs = make([]primitive.ObjectID, 0, len(reports))
		seen := make(map[primitive.ObjectID]bool)
		for _, r := range reports {
			reportIDs = append(reportIDs, r.ID)
			if !seen[r.UserID] {
				seen[r.UserID] = true
				userIDs = append(userIDs, r.UserID)
			}
		}
	}

	var (
		reporters  []models.Reporter
		flags      []models.Flag
		detections []models.Detection
	)
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		if reporters, err = e.source.FindReporters(ctx, userIDs); err != nil {
			return fmt.Errorf("fetch reporters: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		if flags, err = e.source.FindFlags(ctx, reportIDs); err != nil {
			return fmt.Errorf("fetch flags: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		if detections, err = e.source.FindDetections(ctx, reportIDs); err != nil {
			return fmt.Errorf("fetch detections: %w", err)
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	reporterByID := make(map[primitive.ObjectID]*models.Reporter, len(reporters))
	for i := range reporters {
		reporterByID[reporters[i].ID] = &reporters[i]
	}
	flagsByReport := make(map[primitive.ObjectID][]models.Flag)
	for _, f := range flags {
		flagsByReport[f.ReportID] = append(flagsByReport[f.ReportID], f)
	}
	detectionsByReport := make(map[primitive.ObjectID][]models.Detection)
	for _, d := range detections {
		detectionsByReport[d.ReportID] = append(detectionsByReport[d.ReportID], d)
	}

	views := make([]models.ReportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, ProjectReportView(
			r,
			reporterByID[r.UserID],
			flagsByReport[r.ID],
			SelectDetection(detectionsByReport[r.ID]),
		))
	}
	SortNewestFirst(views)

	return &JoinResult{
		Views:      views,
		Reporters:  len(reporters),
		Reports:    len(reports),
		Flags:      len(flags),
		Detections: len(detections),
	}, nil
}

// SortNewestFirst orders views by CreatedAt descending. The sort is stable, so
// views with equal timestamps keep their input order.
func SortNewestFirst(views []models.ReportView) {
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
}
