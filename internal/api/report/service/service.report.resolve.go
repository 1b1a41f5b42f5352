package reportsvc

import (
	"strings"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
)

// SelectDetection picks the detection used for a view's singular detection
// fields: the earliest CreatedAt, ties resolved by the order of ds, which the
// accessors return in insertion order. When any record lacks a CreatedAt the
// timestamps cannot order the set and the first record is used. Nil when ds is empty.
func SelectDetection(ds []models.Detection) *models.Detection {
	if len(ds) == 0 {
		return nil
	}
	best := 0
	for i := range ds {
		if ds[i].CreatedAt.IsZero() {
			best = 0
			break
		}
		if ds[i].CreatedAt.Before(ds[best].CreatedAt) {
			best = i
		}
	}
	d := ds[best]
	return &d
}

// ResolveDisplayImage returns the selected detection's annotated image when it
// is set, otherwise the report's own image.
func ResolveDisplayImage(report models.Report, selected *models.Detection) string {
	if selected != nil {
		if annotated := strings.TrimSpace(selected.AnnotatedImageURL); annotated != "" {
			return annotated
		}
	}
	return report.ImageURL
}

// ProjectReportView builds the composite view of one report. reporter and
// selected may be nil. Submitter fields come from the live reporter only.
func ProjectReportView(report models.Report, reporter *models.Reporter, flags []models.Flag, selected *models.Detection) models.ReportView {
	view := models.ReportView{
		ID:               report.ID,
		UserID:           report.UserID,
		Title:            report.Title,
		Description:      report.Description,
		Location:         report.Location,
		Latitude:         report.Latitude,
		Longitude:        report.Longitude,
		Status:           report.Status,
		GreenFlags:       report.GreenFlags,
		RedFlags:         report.RedFlags,
		CreatedAt:        report.CreatedAt,
		UpdatedAt:        report.UpdatedAt,
		OriginalImageURL: report.ImageURL,
		ImageURL:         ResolveDisplayImage(report, selected),
		Flags:            make([]models.FlagSummary, 0, len(flags)),
		Detections:       []models.DetectedObject{},
	}

	if reporter != nil {
		name, email, phone := reporter.Name, reporter.Email, reporter.Phone
		view.SubmittedBy = &name
		view.SubmitterEmail = &email
		view.SubmitterPhone = &phone
	}

	for _, f := range flags {
		view.Flags = append(view.Flags, f.Summary())
	}

	if selected != nil {
		if annotated := strings.TrimSpace(selected.AnnotatedImageURL); annotated != "" {
			view.AnnotatedImageURL = &annotated
		}
		if len(selected.Detections) > 0 {
			view.Detections = append(view.Detections, selected.Detections...)
		}
		if !selected.CreatedAt.IsZero() {
			detectedAt := selected.CreatedAt
			view.DetectedAt = &detectedAt
		}
	}

	return view
}
