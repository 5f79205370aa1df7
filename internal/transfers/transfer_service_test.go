package transfers

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
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// fakeTransferRepo keeps transfer rows in memory with the same compare-and-set
// rule as the SQL repository.
type fakeTransferRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.TransferRequest
}

func newFakeTransferRepo() *fakeTransferRepo {
	return &fakeTransferRepo{nextID: 1, rows: make(map[int]models.TransferRequest)}
}

func (f *fakeTransferRepo) InsertTransferRecord(t *models.TransferRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t.ID = f.nextID
	f.nextID++
	t.Status = models.TransferPending
	f.rows[t.ID] = *t
	return nil
}

func (f *fakeTransferRepo) GetTransferRow(transferID int) (*models.TransferRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[transferID]
	if !ok {
		return nil, custom_error.NotFound("transfer", transferID)
	}
	copied := row
	return &copied, nil
}

func (f *fakeTransferRepo) GetTransferRows(status *models.TransferStatus) ([]models.TransferRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.TransferRequest
	for _, row := range f.rows {
		if status == nil || row.Status == *status {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeTransferRepo) UpdateStatus(transferID int, from, to models.TransferStatus, extra goqu.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[transferID]
	if !ok || row.Status != from {
		return &custom_error.StaleStateError{Entity: "transfer", ID: transferID, Expected: string(from)}
	}
	row.Status = to
	f.rows[transferID] = row
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
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MovementRecord
	for _, r := range m.records {
		if r.ProductID == productID && r.Location.Equal(loc) {
			out = append(out, r)
		}
	}
	return out, nil
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

type transferFixture struct {
	service   *TransferService
	ledger    *ledger.Service
	repo      *fakeTransferRepo
	movements movements.MovementRepository
	resolver  *MockResolver
}

func newTransferFixture() *transferFixture {
	return newTransferFixtureWith(ledger.NewMemStore(), &memMovementRepo{})
}

func newTransferFixtureWith(store ledger.Store, movementRepo movements.MovementRepository) *transferFixture {
	log := zap.NewNop()
	ledgerService := ledger.NewService(store, log)
	engine := NewEngine(ledgerService, movements.NewRecorder(ledgerService, movementRepo, log))
	repo := newFakeTransferRepo()
	resolver := new(MockResolver)

	return &transferFixture{
		service:   NewTransferService(repo, engine, resolver, nopSink{}, log),
		ledger:    ledgerService,
		repo:      repo,
		movements: movementRepo,
		resolver:  resolver,
	}
}

var (
	sourceWH  = models.LocationRef{Kind: models.LocationWarehouse, ID: 1}
	destStore = models.LocationRef{Kind: models.LocationStore, ID: 2}
)

func activeLocation(ref models.LocationRef) *models.Location {
	return &models.Location{ID: ref.ID, Kind: ref.Kind, Name: ref.Key(), Active: true}
}

func (f *transferFixture) resolveAllActive() {
	f.resolver.On("Resolve", mock.Anything).Return(activeLocation(sourceWH), nil)
}

func (f *transferFixture) seed(productID, quantity int) {
	if _, err := f.ledger.Apply(productID, sourceWH, quantity); err != nil {
		panic(err)
	}
}

func TestTransferLifecycle(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()
	f.seed(1, 10)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, transfer.Status)

	// no reservation until approve
	_, reserved, _ := f.ledger.GetQuantity(1, sourceWH)
	assert.Equal(t, 0, reserved)

	transfer, err = f.service.Approve(transfer.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, models.TransferApproved, transfer.Status)
	require.NotNil(t, transfer.ApprovedBy)
	assert.Equal(t, 8, *transfer.ApprovedBy)

	quantity, reserved, _ := f.ledger.GetQuantity(1, sourceWH)
	assert.Equal(t, 10, quantity)
	assert.Equal(t, 4, reserved)

	transfer, err = f.service.Complete(transfer.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, models.TransferCompleted, transfer.Status)

	quantity, reserved, _ = f.ledger.GetQuantity(1, sourceWH)
	assert.Equal(t, 6, quantity)
	assert.Equal(t, 0, reserved)

	quantity, _, _ = f.ledger.GetQuantity(1, destStore)
	assert.Equal(t, 4, quantity)

	records, err := f.movements.ListByTransfer(transfer.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.MovementTransferOut, records[0].Type)
	assert.Equal(t, -4, records[0].QuantityDelta)
	assert.Equal(t, 6, records[0].ResultingQuantity)
	assert.Equal(t, models.MovementTransferIn, records[1].Type)
	assert.Equal(t, 4, records[1].QuantityDelta)
	assert.Equal(t, 4, records[1].ResultingQuantity)
}

func TestRequestTransferValidation(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()

	var validation *custom_error.ValidationError

	_, err := f.service.RequestTransfer(1, sourceWH, destStore, 0, 7, nil)
	assert.ErrorAs(t, err, &validation)

	_, err = f.service.RequestTransfer(1, sourceWH, sourceWH, 5, 7, nil)
	assert.ErrorAs(t, err, &validation)
}

func TestRequestTransferInactiveLocation(t *testing.T) {
	f := newTransferFixture()
	inactive := activeLocation(sourceWH)
	inactive.Active = false
	f.resolver.On("Resolve", sourceWH).Return(inactive, nil)

	_, err := f.service.RequestTransfer(1, sourceWH, destStore, 5, 7, nil)

	var validation *custom_error.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestApproveInsufficientStockStaysPending(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()
	f.seed(1, 3)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 5, 7, nil)
	require.NoError(t, err)

	_, err = f.service.Approve(transfer.ID, 8)
	assert.ErrorIs(t, err, custom_error.ErrInsufficientStock)

	current, err := f.service.GetTransfer(transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferPending, current.Status)

	_, reserved, _ := f.ledger.GetQuantity(1, sourceWH)
	assert.Equal(t, 0, reserved)
}

func TestCompetingApprovalsFirstWins(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()
	f.seed(1, 5)

	first, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)
	second, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)

	_, err = f.service.Approve(first.ID, 8)
	require.NoError(t, err)

	_, err = f.service.Approve(second.ID, 8)
	assert.ErrorIs(t, err, custom_error.ErrInsufficientStock)

	current, _ := f.service.GetTransfer(second.ID)
	assert.Equal(t, models.TransferPending, current.Status)
}

func TestCompleteRequiresApproved(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()
	f.seed(1, 10)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)

	_, err = f.service.Complete(transfer.ID, 8)
	var invalid *custom_error.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestDoubleCompleteAppliesOnce(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()
	f.seed(1, 10)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)
	_, err = f.service.Approve(transfer.ID, 8)
	require.NoError(t, err)
	_, err = f.service.Complete(transfer.ID, 8)
	require.NoError(t, err)

	_, err = f.service.Complete(transfer.ID, 8)
	var invalid *custom_error.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)

	quantity, _, _ := f.ledger.GetQuantity(1, sourceWH)
	assert.Equal(t, 6, quantity)
	quantity, _, _ = f.ledger.GetQuantity(1, destStore)
	assert.Equal(t, 4, quantity)
}

func TestCompleteSurvivesAuditLogFailure(t *testing.T) {
	repo := &flakyMovementRepo{failures: 1}
	f := newTransferFixtureWith(ledger.NewMemStore(), repo)
	f.resolveAllActive()
	f.seed(1, 10)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)
	_, err = f.service.Approve(transfer.ID, 8)
	require.NoError(t, err)

	// The debit lands but its audit row does not. The transfer still completes;
	// the gap is an operator concern, not a reason to re-open the workflow.
	completed, err := f.service.Complete(transfer.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, models.TransferCompleted, completed.Status)

	quantity, reserved, _ := f.ledger.GetQuantity(1, sourceWH)
	assert.Equal(t, 6, quantity)
	assert.Equal(t, 0, reserved)

	quantity, _, _ = f.ledger.GetQuantity(1, destStore)
	assert.Equal(t, 4, quantity)

	records, err := f.movements.ListByTransfer(transfer.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCompleteCreditFailureKeepsHold(t *testing.T) {
	f := newTransferFixtureWith(&faultyStore{Store: ledger.NewMemStore(), failAt: destStore}, &memMovementRepo{})
	f.resolveAllActive()
	f.seed(1, 10)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)
	_, err = f.service.Approve(transfer.ID, 8)
	require.NoError(t, err)

	_, err = f.service.Complete(transfer.ID, 9)
	require.Error(t, err)

	// Back to APPROVED with the debit compensated and the hold still in place.
	current, err := f.service.GetTransfer(transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferApproved, current.Status)

	quantity, reserved, _ := f.ledger.GetQuantity(1, sourceWH)
	assert.Equal(t, 10, quantity)
	assert.Equal(t, 4, reserved)

	quantity, _, _ = f.ledger.GetQuantity(1, destStore)
	assert.Equal(t, 0, quantity)

	// A retried complete now goes through.
	completed, err := f.service.Complete(transfer.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, models.TransferCompleted, completed.Status)

	quantity, reserved, _ = f.ledger.GetQuantity(1, sourceWH)
	assert.Equal(t, 6, quantity)
	assert.Equal(t, 0, reserved)
}

func TestCancelPending(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()
	f.seed(1, 10)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)

	cancelled, err := f.service.Cancel(transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferCancelled, cancelled.Status)
}

func TestCancelApprovedReleasesReservation(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()
	f.seed(1, 10)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)
	_, err = f.service.Approve(transfer.ID, 8)
	require.NoError(t, err)

	_, err = f.service.Cancel(transfer.ID)
	require.NoError(t, err)

	quantity, reserved, _ := f.ledger.GetQuantity(1, sourceWH)
	assert.Equal(t, 10, quantity)
	assert.Equal(t, 0, reserved)
}

func TestCancelTerminalIsNoOp(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()
	f.seed(1, 10)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)
	_, err = f.service.Approve(transfer.ID, 8)
	require.NoError(t, err)
	_, err = f.service.Complete(transfer.ID, 8)
	require.NoError(t, err)

	current, err := f.service.Cancel(transfer.ID)
	assert.ErrorIs(t, err, custom_error.ErrAlreadyTerminal)
	assert.Equal(t, models.TransferCompleted, current.Status)

	// stock untouched by the no-op
	quantity, _, _ := f.ledger.GetQuantity(1, destStore)
	assert.Equal(t, 4, quantity)
}

func TestRejectPending(t *testing.T) {
	f := newTransferFixture()
	f.resolveAllActive()
	f.seed(1, 10)

	transfer, err := f.service.RequestTransfer(1, sourceWH, destStore, 4, 7, nil)
	require.NoError(t, err)

	rejected, err := f.service.Reject(transfer.ID, "not needed")
	require.NoError(t, err)
	assert.Equal(t, models.TransferRejected, rejected.Status)
	require.NotNil(t, rejected.Notes)
	assert.Equal(t, "not needed", *rejected.Notes)

	_, err = f.service.Reject(transfer.ID, "")
	var invalid *custom_error.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
}

func TestGetTransferNotFound(t *testing.T) {
	f := newTransferFixture()

	_, err := f.service.GetTransfer(404)
	var notFound *custom_error.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
