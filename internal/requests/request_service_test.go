package requests

import (
	"fmt"
	"sync"
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jason-KITIO/k.kits-sub004/internal/ledger"
	"github.com/jason-KITIO/k.kits-sub004/internal/movements"
	"github.com/jason-KITIO/k.kits-sub004/internal/transfers"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

type fakeRequestRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.MovementRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{nextID: 1, rows: make(map[int]models.MovementRequest)}
}

func (f *fakeRequestRepo) InsertRequestRecord(m *models.MovementRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m.ID = f.nextID
	f.nextID++
	m.Status = models.TransferPending
	f.rows[m.ID] = *m
	return nil
}

func (f *fakeRequestRepo) GetRequestRow(requestID int) (*models.MovementRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[requestID]
	if !ok {
		return nil, custom_error.NotFound("movement request", requestID)
	}
	copied := row
	return &copied, nil
}

func (f *fakeRequestRepo) GetRequestRows(status *models.TransferStatus) ([]models.MovementRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.MovementRequest
	for _, row := range f.rows {
		if status == nil || row.Status == *status {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) UpdateStatus(requestID int, from, to models.TransferStatus, extra goqu.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[requestID]
	if !ok || row.Status != from {
		return &custom_error.StaleStateError{Entity: "movement request", ID: requestID, Expected: string(from)}
	}
	row.Status = to
	f.rows[requestID] = row
	return nil
}

type memMovementRepo struct {
	mu      sync.Mutex
	records []models.MovementRecord
}

func (m *memMovementRepo) Insert(record *models.MovementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *record)
	return nil
}

func (m *memMovementRepo) ListByKey(productID int, loc models.LocationRef, limit int) ([]models.MovementRecord, error) {
	return nil, nil
}

func (m *memMovementRepo) ListByTransfer(transferID int) ([]models.MovementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MovementRecord
	for _, r := range m.records {
		if r.RelatedTransferID != nil && *r.RelatedTransferID == transferID {
			out = append(out, r)
		}
	}
	return out, nil
}

// flakyMovementRepo fails the first n inserts and then behaves normally.
type flakyMovementRepo struct {
	memMovementRepo
	failures int
}

func (m *flakyMovementRepo) Insert(record *models.MovementRecord) error {
	if m.failures > 0 {
		m.failures--
		return fmt.Errorf("movement log unavailable")
	}
	return m.memMovementRepo.Insert(record)
}

// faultyStore fails the first Apply against one location.
type faultyStore struct {
	ledger.Store
	failAt models.LocationRef
	fired  bool
}

func (s *faultyStore) Apply(productID int, loc models.LocationRef, delta int) (models.StockEntry, error) {
	if !s.fired && loc.Equal(s.failAt) {
		s.fired = true
		return models.StockEntry{}, fmt.Errorf("storage unavailable")
	}
	return s.Store.Apply(productID, loc, delta)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ref models.LocationRef) (*models.Location, error) {
	args := m.Called(ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

type nopSink struct{}

func (nopSink) TransferApproved(*models.TransferRequest)        {}
func (nopSink) TransferCompleted(*models.TransferRequest)       {}
func (nopSink) MovementRequestApproved(*models.MovementRequest) {}
func (nopSink) CountDiscrepancy(*models.InventoryCount)         {}

type requestFixture struct {
	service   *RequestService
	ledger    *ledger.Service
	movements movements.MovementRepository
	resolver  *MockResolver
}

func newRequestFixture() *requestFixture {
	return newRequestFixtureWith(ledger.NewMemStore(), &memMovementRepo{})
}

func newRequestFixtureWith(store ledger.Store, movementRepo movements.MovementRepository) *requestFixture {
	log := zap.NewNop()
	ledgerService := ledger.NewService(store, log)
	engine := transfers.NewEngine(ledgerService, movements.NewRecorder(ledgerService, movementRepo, log))
	resolver := new(MockResolver)

	return &requestFixture{
		service:   NewRequestService(newFakeRequestRepo(), engine, resolver, nopSink{}, log),
		ledger:    ledgerService,
		movements: movementRepo,
		resolver:  resolver,
	}
}

var (
	warehouse = models.LocationRef{Kind: models.LocationWarehouse, ID: 1}
	store     = models.LocationRef{Kind: models.LocationStore, ID: 2}
	employee  = models.LocationRef{Kind: models.LocationEmployee, ID: 3}
)

func (f *requestFixture) resolveAllActive() {
	f.resolver.On("Resolve", mock.Anything).Return(&models.Location{ID: 1, Active: true}, nil)
}

func TestApproveMovesStockInOneCall(t *testing.T) {
	f := newRequestFixture()
	f.resolveAllActive()
	_, err := f.ledger.Apply(1, warehouse, 10)
	require.NoError(t, err)

	request, err := f.service.CreateRequest(1, warehouse, store, 6, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, request.Status)

	approved, err := f.service.Approve(request.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, models.TransferApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, 8, *approved.ApprovedBy)

	quantity, reserved, _ := f.ledger.GetQuantity(1, warehouse)
	assert.Equal(t, 4, quantity)
	assert.Equal(t, 0, reserved)

	quantity, _, _ = f.ledger.GetQuantity(1, store)
	assert.Equal(t, 6, quantity)

	records, err := f.movements.ListByTransfer(request.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestApproveInsufficientStockKeepsRequestPending(t *testing.T) {
	f := newRequestFixture()
	f.resolveAllActive()
	_, err := f.ledger.Apply(1, warehouse, 2)
	require.NoError(t, err)

	request, err := f.service.CreateRequest(1, warehouse, store, 6, 7, nil)
	require.NoError(t, err)

	_, err = f.service.Approve(request.ID, 8)
	assert.ErrorIs(t, err, custom_error.ErrInsufficientStock)

	current, err := f.service.GetRequest(request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, current.Status)
}

func TestApproveSurvivesAuditLogFailure(t *testing.T) {
	repo := &flakyMovementRepo{failures: 1}
	f := newRequestFixtureWith(ledger.NewMemStore(), repo)
	f.resolveAllActive()
	_, err := f.ledger.Apply(1, warehouse, 10)
	require.NoError(t, err)

	request, err := f.service.CreateRequest(1, warehouse, store, 6, 7, nil)
	require.NoError(t, err)

	// The debit lands but its audit row does not. The move still goes through;
	// the gap is an operator concern, not a reason to re-open the request.
	approved, err := f.service.Approve(request.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, models.TransferApproved, approved.Status)

	quantity, reserved, _ := f.ledger.GetQuantity(1, warehouse)
	assert.Equal(t, 4, quantity)
	assert.Equal(t, 0, reserved)

	quantity, _, _ = f.ledger.GetQuantity(1, store)
	assert.Equal(t, 6, quantity)

	records, err := f.movements.ListByTransfer(request.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestApproveCreditFailureLeavesNoPartialState(t *testing.T) {
	f := newRequestFixtureWith(&faultyStore{Store: ledger.NewMemStore(), failAt: store}, &memMovementRepo{})
	f.resolveAllActive()
	_, err := f.ledger.Apply(1, warehouse, 10)
	require.NoError(t, err)

	request, err := f.service.CreateRequest(1, warehouse, store, 6, 7, nil)
	require.NoError(t, err)

	_, err = f.service.Approve(request.ID, 8)
	require.Error(t, err)

	current, err := f.service.GetRequest(request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, current.Status)

	quantity, reserved, _ := f.ledger.GetQuantity(1, warehouse)
	assert.Equal(t, 10, quantity)
	assert.Equal(t, 0, reserved)

	quantity, _, _ = f.ledger.GetQuantity(1, store)
	assert.Equal(t, 0, quantity)
}

func TestApproveIsTerminalForRequests(t *testing.T) {
	f := newRequestFixture()
	f.resolveAllActive()
	_, err := f.ledger.Apply(1, warehouse, 10)
	require.NoError(t, err)

	request, err := f.service.CreateRequest(1, warehouse, store, 3, 7, nil)
	require.NoError(t, err)
	_, err = f.service.Approve(request.ID, 8)
	require.NoError(t, err)

	_, err = f.service.Approve(request.ID, 8)
	var invalid *custom_error.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)

	quantity, _, _ := f.ledger.GetQuantity(1, store)
	assert.Equal(t, 3, quantity)
}

func TestCreateRequestRestrictsPairs(t *testing.T) {
	f := newRequestFixture()
	f.resolveAllActive()

	var validation *custom_error.ValidationError

	_, err := f.service.CreateRequest(1, warehouse, employee, 3, 7, nil)
	assert.ErrorAs(t, err, &validation)

	_, err = f.service.CreateRequest(1, store, store, 3, 7, nil)
	assert.ErrorAs(t, err, &validation)

	_, err = f.service.CreateRequest(1, warehouse, store, 0, 7, nil)
	assert.ErrorAs(t, err, &validation)

	// the reverse direction is allowed
	_, err = f.service.CreateRequest(1, store, warehouse, 3, 7, nil)
	assert.NoError(t, err)
}

func TestRejectRequest(t *testing.T) {
	f := newRequestFixture()
	f.resolveAllActive()

	request, err := f.service.CreateRequest(1, warehouse, store, 3, 7, nil)
	require.NoError(t, err)

	rejected, err := f.service.Reject(request.ID, "stock needed elsewhere")
	require.NoError(t, err)
	assert.Equal(t, models.TransferRejected, rejected.Status)

	_, err = f.service.Reject(request.ID, "")
	var invalid *custom_error.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}
