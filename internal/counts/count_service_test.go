package counts

import (
	"sync"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jason-KITIO/k.kits-sub004/internal/ledger"
	"github.com/jason-KITIO/k.kits-sub004/internal/movements"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

type fakeCountRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]models.InventoryCount
}

func newFakeCountRepo() *fakeCountRepo {
	return &fakeCountRepo{nextID: 1, rows: make(map[int]models.InventoryCount)}
}

func (f *fakeCountRepo) InsertCountRecord(c *models.InventoryCount) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c.ID = f.nextID
	f.nextID++
	c.Status = models.CountScheduled
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCountRepo) GetCountRow(countID int) (*models.InventoryCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[countID]
	if !ok {
		return nil, custom_error.NotFound("inventory count", countID)
	}
	copied := row
	return &copied, nil
}

func (f *fakeCountRepo) GetCountRows(status *models.CountStatus) ([]models.InventoryCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.InventoryCount
	for _, row := range f.rows {
		if status == nil || row.Status == *status {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeCountRepo) UpdateStatus(countID int, from, to models.CountStatus, extra goqu.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[countID]
	if !ok || row.Status != from {
		return &custom_error.StaleStateError{Entity: "inventory count", ID: countID, Expected: string(from)}
	}
	row.Status = to
	f.rows[countID] = row
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
	return nil, nil
}

// discrepancySink records CountDiscrepancy calls on a channel because the
// service notifies from a goroutine.
type discrepancySink struct {
	discrepancies chan *models.InventoryCount
}

func newDiscrepancySink() *discrepancySink {
	return &discrepancySink{discrepancies: make(chan *models.InventoryCount, 1)}
}

func (s *discrepancySink) TransferApproved(*models.TransferRequest)        {}
func (s *discrepancySink) TransferCompleted(*models.TransferRequest)       {}
func (s *discrepancySink) MovementRequestApproved(*models.MovementRequest) {}
func (s *discrepancySink) CountDiscrepancy(c *models.InventoryCount) {
	s.discrepancies <- c
}

type countFixture struct {
	service   *CountService
	ledger    *ledger.Service
	movements *memMovementRepo
	sink      *discrepancySink
}

func newCountFixture() *countFixture {
	log := zap.NewNop()
	ledgerService := ledger.NewService(ledger.NewMemStore(), log)
	movementRepo := &memMovementRepo{}
	recorder := movements.NewRecorder(ledgerService, movementRepo, log)
	sink := newDiscrepancySink()

	return &countFixture{
		service:   NewCountService(newFakeCountRepo(), ledgerService, recorder, sink, log),
		ledger:    ledgerService,
		movements: movementRepo,
		sink:      sink,
	}
}

var countLocation = models.LocationRef{Kind: models.LocationStore, ID: 3}

func TestScheduleSnapshotsExpectedQuantity(t *testing.T) {
	f := newCountFixture()
	_, err := f.ledger.Apply(1, countLocation, 50)
	require.NoError(t, err)

	count, err := f.service.Schedule(1, countLocation, time.Now(), 7)
	require.NoError(t, err)
	assert.Equal(t, 50, count.ExpectedQty)
	assert.Equal(t, models.CountScheduled, count.Status)
}

func TestCompleteAdjustsAgainstSnapshotNotCurrent(t *testing.T) {
	f := newCountFixture()
	_, err := f.ledger.Apply(1, countLocation, 50)
	require.NoError(t, err)

	count, err := f.service.Schedule(1, countLocation, time.Now(), 7)
	require.NoError(t, err)

	// the ledger drifts between schedule and completion
	_, err = f.ledger.Apply(1, countLocation, -5)
	require.NoError(t, err)

	completed, err := f.service.Complete(count.ID, 40, 7)
	require.NoError(t, err)
	assert.Equal(t, models.CountCompleted, completed.Status)
	require.NotNil(t, completed.Difference)
	assert.Equal(t, -10, *completed.Difference)

	// adjustment of -10 lands on the drifted value 45, not back to 40
	quantity, _, _ := f.ledger.GetQuantity(1, countLocation)
	assert.Equal(t, 35, quantity)

	records, err := f.movements.ListByKey(1, countLocation, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.MovementAdjustment, records[0].Type)
	assert.Equal(t, -10, records[0].QuantityDelta)

	select {
	case flagged := <-f.sink.discrepancies:
		assert.Equal(t, count.ID, flagged.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a discrepancy notification")
	}
}

func TestCompleteWithZeroDifferenceEmitsNoAdjustment(t *testing.T) {
	f := newCountFixture()
	_, err := f.ledger.Apply(1, countLocation, 20)
	require.NoError(t, err)

	count, err := f.service.Schedule(1, countLocation, time.Now(), 7)
	require.NoError(t, err)

	completed, err := f.service.Complete(count.ID, 20, 7)
	require.NoError(t, err)
	require.NotNil(t, completed.Difference)
	assert.Equal(t, 0, *completed.Difference)

	records, err := f.movements.ListByKey(1, countLocation, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCompleteSmallDifferenceNotFlagged(t *testing.T) {
	f := newCountFixture()
	_, err := f.ledger.Apply(1, countLocation, 20)
	require.NoError(t, err)

	count, err := f.service.Schedule(1, countLocation, time.Now(), 7)
	require.NoError(t, err)

	_, err = f.service.Complete(count.ID, 17, 7)
	require.NoError(t, err)

	select {
	case <-f.sink.discrepancies:
		t.Fatal("difference below threshold must not be flagged")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCompleteRejectsNegativeActual(t *testing.T) {
	f := newCountFixture()

	_, err := f.service.Complete(1, -1, 7)

	var validation *custom_error.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestCompleteTwice(t *testing.T) {
	f := newCountFixture()
	_, err := f.ledger.Apply(1, countLocation, 20)
	require.NoError(t, err)

	count, err := f.service.Schedule(1, countLocation, time.Now(), 7)
	require.NoError(t, err)

	_, err = f.service.Complete(count.ID, 15, 7)
	require.NoError(t, err)

	_, err = f.service.Complete(count.ID, 15, 7)
	var invalid *custom_error.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)

	// only one adjustment applied
	quantity, _, _ := f.ledger.GetQuantity(1, countLocation)
	assert.Equal(t, 15, quantity)
}

func TestCancelScheduledCount(t *testing.T) {
	f := newCountFixture()

	count, err := f.service.Schedule(1, countLocation, time.Now(), 7)
	require.NoError(t, err)

	cancelled, err := f.service.Cancel(count.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CountCancelled, cancelled.Status)

	current, err := f.service.Cancel(count.ID)
	assert.ErrorIs(t, err, custom_error.ErrAlreadyTerminal)
	assert.Equal(t, models.CountCancelled, current.Status)
}
