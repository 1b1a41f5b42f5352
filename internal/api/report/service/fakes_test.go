package reportsvc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rugvedkadu06/aggrigator/internal/api/report/models"
	"github.com/rugvedkadu06/aggrigator/internal/common"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// oid returns a deterministic ObjectID; larger n sorts later.
func oid(n int) primitive.ObjectID {
	var id primitive.ObjectID
	id[0] = 0x65
	binary.BigEndian.PutUint32(id[8:], uint32(n))
	return id
}

// fakeSource is an in-memory SourceReader. Records are returned in slice order.
type fakeSource struct {
	reporters  []models.Reporter
	reports    []models.Report
	flags      []models.Flag
	detections []models.Detection

	errReporters  error
	errReports    error
	errFlags      error
	errDetections error

	// When gate is set FindReports signals started and blocks until gate is closed.
	gate    chan struct{}
	started chan struct{}

	mu              sync.Mutex
	calls           []string
	lastReporterIDs []primitive.ObjectID
	lastFlagIDs     []primitive.ObjectID
}

func (f *fakeSource) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeSource) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (f *fakeSource) FindReporters(ctx context.Context, ids []primitive.ObjectID) ([]models.Reporter, error) {
	f.record("reporters")
	f.mu.Lock()
	f.lastReporterIDs = ids
	f.mu.Unlock()
	if f.errReporters != nil {
		return nil, f.errReporters
	}
	set := idSet(ids)
	out := []models.Reporter{}
	for _, r := range f.reporters {
		if set == nil || set[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) FindReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	f.record("reports")
	if f.gate != nil {
		if f.started != nil {
			f.started <- struct{}{}
		}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.errReports != nil {
		return nil, f.errReports
	}
	out := []models.Report{}
	for _, r := range f.reports {
		if filter.ReporterID == nil || r.UserID == *filter.ReporterID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) FindFlags(ctx context.Context, reportIDs []primitive.ObjectID) ([]models.Flag, error) {
	f.record("flags")
	f.mu.Lock()
	f.lastFlagIDs = reportIDs
	f.mu.Unlock()
	if f.errFlags != nil {
		return nil, f.errFlags
	}
	set := idSet(reportIDs)
	out := []models.Flag{}
	for _, fl := range f.flags {
		if set == nil || set[fl.ReportID] {
			out = append(out, fl)
		}
	}
	return out, nil
}

func (f *fakeSource) FindDetections(ctx context.Context, reportIDs []primitive.ObjectID) ([]models.Detection, error) {
	f.record("detections")
	if f.errDetections != nil {
		return nil, f.errDetections
	}
	set := idSet(reportIDs)
	out := []models.Detection{}
	for _, d := range f.detections {
		if set == nil || set[d.ReportID] {
			out = append(out, d)
		}
	}
	return out, nil
}

// memViewStore is an in-memory ViewStore keyed by collection name.
type memViewStore struct {
	mu          sync.Mutex
	target      string
	collections map[string][]models.ReportView
	indexed     map[string]bool
	state       *models.SyncState

	insertCalls  int
	failInsertAt int // 1-based InsertViews call that fails; 0 never
	insertErr    error
	promoteErr   error
	loadErr      error
	saveErr      error
	onCreate     func()
	// onInsert runs before every InsertViews call with the collection and the 1-based call number.
	onInsert func(collection string, call int)

	// When insertGate is set InsertViews signals inserting once and blocks until it is closed.
	insertGate chan struct{}
	inserting  chan struct{}
	signalOnce sync.Once

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newMemViewStore(target string) *memViewStore {
	return &memViewStore{
		target:      target,
		collections: make(map[string][]models.ReportView),
		indexed:     make(map[string]bool),
	}
}

func (s *memViewStore) TargetName() string { return s.target }

func (s *memViewStore) ListStaging(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.collections {
		if strings.HasPrefix(name, s.target+stagingInfix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *memViewStore) CreateCollection(ctx context.Context, name string) error {
	if s.onCreate != nil {
		s.onCreate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("collection %s already exists", name)
	}
	s.collections[name] = []models.ReportView{}
	return nil
}

func (s *memViewStore) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	delete(s.indexed, name)
	return nil
}

// InsertViews creates a missing collection the way MongoDB does on insert.
func (s *memViewStore) InsertViews(ctx context.Context, collection string, views []models.ReportView) (int, error) {
	if s.onInsert != nil {
		s.mu.Lock()
		call := s.insertCalls + 1
		s.mu.Unlock()
		s.onInsert(collection, call)
	}

	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		m := s.maxInFlight.Load()
		if n <= m || s.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	if s.insertGate != nil {
		s.signalOnce.Do(func() {
			if s.inserting != nil {
				close(s.inserting)
			}
		})
		<-s.insertGate
	}
	time.Sleep(2 * time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.failInsertAt > 0 && s.insertCalls == s.failInsertAt {
		return 0, s.insertErr
	}
	s.collections[collection] = append(s.collections[collection], views...)
	return len(views), nil
}

func (s *memViewStore) CountViews(ctx context.Context, collection string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.collections[collection])), nil
}

func (s *memViewStore) CreateIndexes(ctx context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed[collection] = true
	return nil
}

func (s *memViewStore) Promote(ctx context.Context, staging string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.promoteErr != nil {
		return s.promoteErr
	}
	views, ok := s.collections[staging]
	if !ok {
		return errors.New("source namespace does not exist")
	}
	s.collections[s.target] = views
	s.indexed[s.target] = s.indexed[staging]
	delete(s.collections, staging)
	delete(s.indexed, staging)
	return nil
}

func (s *memViewStore) LoadState(ctx context.Context) (*models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.state == nil {
		return nil, nil
	}
	cp := *s.state
	return &cp, nil
}

func (s *memViewStore) SaveState(ctx context.Context, state models.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	state.ID = s.target
	s.state = &state
	return nil
}

func (s *memViewStore) FindViews(ctx context.Context, filter models.ReportViewFilter) ([]models.ReportView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ReportView{}
	for _, v := range s.collections[s.target] {
		if filter.UserID != nil && v.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		out = append(out, v)
	}
	SortNewestFirst(out)
	return out, nil
}

func (s *memViewStore) targetViews() []models.ReportView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReportView(nil), s.collections[s.target]...)
}

func (s *memViewStore) seedTarget(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]models.ReportView, n)
	for i := range views {
		views[i] = models.ReportView{ID: oid(10000 + i), Title: fmt.Sprintf("old %d", i)}
	}
	s.collections[s.target] = views
	success := t0.Add(-time.Hour)
	s.state = &models.SyncState{ID: s.target, Status: models.SyncStatusIdle, LastSuccessAt: &success, LastCount: int64(n)}
}

// fakeLock is a DistributedLock returning err, or succeeding and counting releases.
type fakeLock struct {
	err error
	// loseOnAcquire hands out a lock that is already lost.
	loseOnAcquire bool
	acquired      atomic.Int32
	released      atomic.Int32

	mu     sync.Mutex
	cancel context.CancelCauseFunc
}

func (l *fakeLock) Acquire(ctx context.Context, key string) (context.Context, func(context.Context) error, error) {
	if l.err != nil {
		return nil, nil, l.err
	}
	l.acquired.Add(1)
	held, cancel := context.WithCancelCause(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()
	if l.loseOnAcquire {
		l.lose()
	}
	return held, func(context.Context) error {
		cancel(nil)
		l.released.Add(1)
		return nil
	}, nil
}

// lose expires the lock currently held.
func (l *fakeLock) lose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel(common.WithDetails(common.ErrMaterializeLockLost, errors.New("redislock: not obtained")))
	}
}

// singhFixture is a report with two flags and one detection plus an orphan report.
func singhFixture() *fakeSource {
	singh := models.Reporter{ID: oid(1), Name: "A. Singh", Email: "singh@example.com", Phone: "+91-555-0101", IsVerified: true}
	r := models.Report{
		ID: oid(100), UserID: singh.ID, Title: "Pothole on MG Road", Location: "MG Road",
		Status: models.ReportStatusPending, ImageURL: "https://img.example.com/r100.jpg",
		SubmittedBy: "Old Name", GreenFlags: 7, RedFlags: 3, CreatedAt: t0, UpdatedAt: t0,
	}
	orphan := models.Report{
		ID: oid(101), UserID: oid(99), Title: "Broken light", Status: models.ReportStatusResolved,
		ImageURL: "https://img.example.com/r101.jpg", SubmittedBy: "Deleted User", CreatedAt: t0.Add(-time.Hour),
	}
	return &fakeSource{
		reporters: []models.Reporter{singh},
		reports:   []models.Report{r, orphan},
		flags: []models.Flag{
			{ID: oid(200), ReportID: r.ID, UserID: oid(2), UserName: "B", FlagType: models.FlagTypePositive, CreatedAt: t0.Add(time.Minute)},
			{ID: oid(201), ReportID: r.ID, UserID: oid(3), UserName: "C", FlagType: models.FlagTypeNegative, Reason: "duplicate", CreatedAt: t0.Add(2 * time.Minute)},
		},
		detections: []models.Detection{{
			ID: oid(300), ReportID: r.ID, AnnotatedImageURL: "https://img.example.com/r100-annotated.jpg",
			Detections: []models.DetectedObject{
				{Class: "pothole", Confidence: 0.93, BBox: []float64{10, 20, 110, 140}},
				{Class: "car", Confidence: 0.71, BBox: []float64{200, 40, 380, 160}},
			},
			CreatedAt: t0.Add(5 * time.Minute),
		}},
	}
}

// bulkSource returns n reports by two reporters, one flag and one detection each.
func bulkSource(n int) *fakeSource {
	src := &fakeSource{
		reporters: []models.Reporter{{ID: oid(1), Name: "One"}, {ID: oid(2), Name: "Two"}},
	}
	for i := 0; i < n; i++ {
		id := oid(1000 + i)
		src.reports = append(src.reports, models.Report{
			ID: id, UserID: oid(1 + i%2), Title: fmt.Sprintf("report %d", i),
			Status: models.ReportStatusPending, ImageURL: fmt.Sprintf("https://img/%d.jpg", i),
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		})
		src.flags = append(src.flags, models.Flag{ID: oid(5000 + i), ReportID: id, UserID: oid(2 - i%2), FlagType: models.FlagTypePositive})
		src.detections = append(src.detections, models.Detection{ID: oid(8000 + i), ReportID: id, AnnotatedImageURL: fmt.Sprintf("https://img/%d-a.jpg", i)})
	}
	return src
}
