package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/certflow/certportal-backend/internal/registry/domain"
	"github.com/certflow/certportal-backend/internal/registry/repository"
	"github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/logger"
	"github.com/certflow/certportal-backend/pkg/messaging"
	"github.com/google/uuid"
)

// In-memory stores implementing the service persistence boundaries. They
// emulate the repositories' optimistic concurrency so conflict paths are
// testable without a database.

type fakeAppStore struct {
	mu    sync.Mutex
	apps  map[string]*domain.Application
	audit []*domain.AuditEntry

	failUpdate error
}

func newFakeAppStore() *fakeAppStore {
	return &fakeAppStore{apps: make(map[string]*domain.Application)}
}

func cloneApp(app *domain.Application) *domain.Application {
	out := *app
	out.Profile = app.Profile.Clone()
	return &out
}

func (s *fakeAppStore) Create(ctx context.Context, app *domain.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if app.Status == "" {
		app.Status = domain.StatusDraft
	}
	app.Version = 1
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	s.apps[app.ID] = cloneApp(app)
	return nil
}

func (s *fakeAppStore) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, errors.NotFound("application")
	}
	return cloneApp(app), nil
}

func (s *fakeAppStore) Update(ctx context.Context, app *domain.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		return s.failUpdate
	}
	stored, ok := s.apps[app.ID]
	if !ok {
		return errors.NotFound("application")
	}
	if stored.Version != app.Version {
		return errors.VersionConflict("application")
	}
	app.Version++
	app.UpdatedAt = time.Now()
	s.apps[app.ID] = cloneApp(app)
	return nil
}

func (s *fakeAppStore) List(ctx context.Context, params repository.ApplicationListParams) ([]*domain.Application, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Application
	for _, app := range s.apps {
		if params.ApplicantID != nil && app.ApplicantID != *params.ApplicantID {
			continue
		}
		if params.ReviewerID != nil && (app.ReviewerID == nil || *app.ReviewerID != *params.ReviewerID) {
			continue
		}
		if params.Status != nil && app.Status != *params.Status {
			continue
		}
		out = append(out, cloneApp(app))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *fakeAppStore) ListByStatusExpiringBefore(ctx context.Context, status domain.Status, cutoff time.Time) ([]*domain.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Application
	for _, app := range s.apps {
		if app.Status == status && app.ExpiresAt != nil && app.ExpiresAt.Before(cutoff) {
			out = append(out, cloneApp(app))
		}
	}
	return out, nil
}

func (s *fakeAppStore) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *fakeAppStore) ListAudit(ctx context.Context, applicationID string) ([]*domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.AuditEntry
	for _, e := range s.audit {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeCriteriaStore struct {
	mu       sync.Mutex
	criteria map[string]*domain.Criterion
	bands    map[string]*domain.LevelBand
}

func newFakeCriteriaStore() *fakeCriteriaStore {
	return &fakeCriteriaStore{
		criteria: make(map[string]*domain.Criterion),
		bands:    make(map[string]*domain.LevelBand),
	}
}

func (s *fakeCriteriaStore) ListCriteria(ctx context.Context) ([]*domain.Criterion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Criterion
	for _, c := range s.criteria {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeCriteriaStore) GetCriterion(ctx context.Context, id string) (*domain.Criterion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.criteria[id]
	if !ok {
		return nil, errors.NotFound("criterion")
	}
	copied := *c
	return &copied, nil
}

func (s *fakeCriteriaStore) UpsertCriterion(ctx context.Context, c *domain.Criterion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	copied := *c
	s.criteria[c.ID] = &copied
	return nil
}

func (s *fakeCriteriaStore) RemoveCriterion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.criteria[id]; !ok {
		return errors.NotFound("criterion")
	}
	delete(s.criteria, id)
	return nil
}

func (s *fakeCriteriaStore) ListLevelBands(ctx context.Context) ([]*domain.LevelBand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.LevelBand
	for _, b := range s.bands {
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinYears < out[j].MinYears })
	return out, nil
}

func (s *fakeCriteriaStore) UpsertLevelBand(ctx context.Context, b *domain.LevelBand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	copied := *b
	s.bands[b.ID] = &copied
	return nil
}

func (s *fakeCriteriaStore) RemoveLevelBand(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bands[id]; !ok {
		return errors.NotFound("level band")
	}
	delete(s.bands, id)
	return nil
}

type fakeDocStore struct {
	mu   sync.Mutex
	docs map[string]*domain.DocumentRef
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]*domain.DocumentRef)}
}

func (s *fakeDocStore) Create(ctx context.Context, doc *domain.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = domain.DocumentPending
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *fakeDocStore) GetByID(ctx context.Context, id string) (*domain.DocumentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, errors.NotFound("document")
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeDocStore) ListByApplication(ctx context.Context, applicationID string) ([]*domain.DocumentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.DocumentRef
	for _, doc := range s.docs {
		if doc.ApplicationID == applicationID {
			copied := *doc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func (s *fakeDocStore) NextVersion(ctx context.Context, applicationID string, docType domain.DocumentType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, doc := range s.docs {
		if doc.ApplicationID == applicationID && doc.Type == docType && doc.Version > max {
			max = doc.Version
		}
	}
	return max + 1, nil
}

func (s *fakeDocStore) UpdateStatus(ctx context.Context, doc *domain.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return errors.NotFound("document")
	}
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

type fakeInvoiceStore struct {
	mu       sync.Mutex
	invoices map[string]*domain.Invoice
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{invoices: make(map[string]*domain.Invoice)}
}

func (s *fakeInvoiceStore) Create(ctx context.Context, inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Status == "" {
		inv.Status = domain.InvoicePending
	}
	inv.Version = 1
	copied := *inv
	s.invoices[inv.ID] = &copied
	return nil
}

func (s *fakeInvoiceStore) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, errors.NotFound("invoice")
	}
	copied := *inv
	return &copied, nil
}

func (s *fakeInvoiceStore) List(ctx context.Context, params repository.InvoiceListParams) ([]*domain.Invoice, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Invoice
	for _, inv := range s.invoices {
		if params.ApplicationID != nil && inv.ApplicationID != *params.ApplicationID {
			continue
		}
		if params.Status != nil && inv.Status != *params.Status {
			continue
		}
		copied := *inv
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (s *fakeInvoiceStore) ListPendingDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Invoice
	for _, inv := range s.invoices {
		if inv.Status == domain.InvoicePending && inv.DueDate.Before(cutoff) {
			copied := *inv
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeInvoiceStore) Update(ctx context.Context, inv *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.invoices[inv.ID]
	if !ok {
		return errors.NotFound("invoice")
	}
	if stored.Version != inv.Version {
		return errors.VersionConflict("invoice")
	}
	inv.Version++
	copied := *inv
	s.invoices[inv.ID] = &copied
	return nil
}

// recordingDispatcher records every dispatched notification
type recordingDispatcher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type    string
	Payload interface{}
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{}
}

func (d *recordingDispatcher) record(eventType string, payload interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, recordedEvent{Type: eventType, Payload: payload})
}

func (d *recordingDispatcher) types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

func (d *recordingDispatcher) has(eventType string) bool {
	for _, t := range d.types() {
		if t == eventType {
			return true
		}
	}
	return false
}

func (d *recordingDispatcher) ApplicationTransitioned(ctx context.Context, eventType string, data messaging.ApplicationTransitionedEvent) {
	d.record(eventType, data)
}

func (d *recordingDispatcher) ProfileEdited(ctx context.Context, data messaging.ApplicationProfileEditedEvent) {
	d.record(messaging.EventApplicationProfileEdited, data)
}

func (d *recordingDispatcher) DocumentSubmitted(ctx context.Context, data messaging.DocumentSubmittedEvent) {
	d.record(messaging.EventDocumentSubmitted, data)
}

func (d *recordingDispatcher) DocumentVerified(ctx context.Context, data messaging.DocumentVerifiedEvent) {
	d.record(messaging.EventDocumentVerified, data)
}

func (d *recordingDispatcher) DocumentRejected(ctx context.Context, data messaging.DocumentRejectedEvent) {
	d.record(messaging.EventDocumentRejected, data)
}

func (d *recordingDispatcher) InvoiceIssued(ctx context.Context, data messaging.InvoiceIssuedEvent) {
	d.record(messaging.EventInvoiceIssued, data)
}

func (d *recordingDispatcher) InvoicePaid(ctx context.Context, data messaging.InvoicePaidEvent) {
	d.record(messaging.EventInvoicePaid, data)
}

func (d *recordingDispatcher) InvoiceOverdue(ctx context.Context, data messaging.InvoiceOverdueEvent) {
	d.record(messaging.EventInvoiceOverdue, data)
}

func (d *recordingDispatcher) InvoiceCancelled(ctx context.Context, data messaging.InvoiceCancelledEvent) {
	d.record(messaging.EventInvoiceCancelled, data)
}

func testLogger() *logger.Logger {
	return logger.New("registry-test", "test")
}
