package requests

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	"go.uber.org/zap"

	"github.com/jason-KITIO/k.kits-sub004/internal/notifier"
	"github.com/jason-KITIO/k.kits-sub004/internal/transfers"
	custom_error "github.com/jason-KITIO/k.kits-sub004/pkg/errors"
	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// RequestService runs the warehouse<->store movement flow. It is the transfer
// workflow with completion collapsed into approval: the approver's single call
// reserves, debits, releases and credits, and APPROVED is terminal. The
// approver is always the authenticated actor.
type RequestService struct {
	rr     RequestRepository
	engine *transfers.Engine
	locs   transfers.LocationResolver
	notify notifier.Sink
	log    *zap.Logger
}

func NewRequestService(rr RequestRepository, engine *transfers.Engine,
	locs transfers.LocationResolver, notify notifier.Sink, log *zap.Logger) *RequestService {
	return &RequestService{rr: rr, engine: engine, locs: locs, notify: notify, log: log}
}

func validPair(from, to models.LocationRef) bool {
	switch {
	case from.Kind == models.LocationWarehouse && to.Kind == models.LocationStore:
		return true
	case from.Kind == models.LocationStore && to.Kind == models.LocationWarehouse:
		return true
	default:
		return false
	}
}

func (s *RequestService) CreateRequest(productID int, from, to models.LocationRef,
	quantity int, requestedBy int, notes *string) (*models.MovementRequest, error) {

	if quantity <= 0 {
		return nil, custom_error.Validation("movement quantity must be positive, got %d", quantity)
	}
	if !validPair(from, to) {
		return nil, custom_error.Validation("movement requests only run between a warehouse and a store")
	}
	if from.Equal(to) {
		return nil, custom_error.Validation("source and destination must differ")
	}

	for _, ref := range []models.LocationRef{from, to} {
		loc, err := s.locs.Resolve(ref)
		if err != nil {
			return nil, err
		}
		if !loc.Active {
			return nil, custom_error.Validation("location %s is deactivated", ref.Key())
		}
	}

	request := &models.MovementRequest{
		ProductID:   productID,
		Quantity:    quantity,
		FromKind:    from.Kind,
		FromID:      from.ID,
		ToKind:      to.Kind,
		ToID:        to.ID,
		RequestedBy: requestedBy,
		Notes:       notes,
	}

	if err := s.rr.InsertRequestRecord(request); err != nil {
		return nil, err
	}

	return request, nil
}

// Approve carries the whole stock effect. The reservation is taken first so
// concurrent approvals of competing requests resolve to exactly one winner,
// then the status flips, then the held stock moves.
func (s *RequestService) Approve(requestID int, approvedBy int) (*models.MovementRequest, error) {
	request, err := s.rr.GetRequestRow(requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.TransferPending {
		return nil, &custom_error.InvalidTransitionError{
			Entity: "movement request", From: string(request.Status), Action: "approve",
		}
	}

	if err := s.engine.Hold(request.ProductID, request.From(), request.Quantity); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.rr.UpdateStatus(requestID, models.TransferPending, models.TransferApproved, goqu.Record{
		"approved_by": approvedBy,
		"approved_at": now,
	})
	if err != nil {
		if releaseErr := s.engine.ReleaseHold(request.ProductID, request.From(), request.Quantity); releaseErr != nil {
			s.log.Error("failed to unwind reservation after stale approve",
				zap.Int("request_id", requestID), zap.Error(releaseErr))
		}
		return nil, err
	}

	if err := s.engine.Commit(request.ProductID, request.From(), request.To(),
		request.Quantity, approvedBy, requestID); err != nil {

		// A failed commit leaves the source compensated with the hold still in
		// place, so going back to PENDING means giving that hold back too. A
		// pending request must not lock inventory.
		s.log.Error("movement request commit failed, reverting to pending",
			zap.Int("request_id", requestID), zap.Error(err))
		if releaseErr := s.engine.ReleaseHold(request.ProductID, request.From(), request.Quantity); releaseErr != nil {
			s.log.Error("failed to release reservation after failed commit",
				zap.Int("request_id", requestID), zap.Error(releaseErr))
		}
		revertErr := s.rr.UpdateStatus(requestID, models.TransferApproved, models.TransferPending, goqu.Record{
			"approved_by": nil,
			"approved_at": nil,
		})
		if revertErr != nil {
			s.log.Error("failed to revert movement request status",
				zap.Int("request_id", requestID), zap.Error(revertErr))
		}
		return nil, err
	}

	request.Status = models.TransferApproved
	request.ApprovedBy = &approvedBy
	request.ApprovedAt = &now

	go s.notify.MovementRequestApproved(request)

	return request, nil
}

func (s *RequestService) Reject(requestID int, reason string) (*models.MovementRequest, error) {
	request, err := s.rr.GetRequestRow(requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.TransferPending {
		return nil, &custom_error.InvalidTransitionError{
			Entity: "movement request", From: string(request.Status), Action: "reject",
		}
	}

	extra := goqu.Record{}
	if reason != "" {
		extra["notes"] = reason
	}
	if err := s.rr.UpdateStatus(requestID, models.TransferPending, models.TransferRejected, extra); err != nil {
		return nil, err
	}

	request.Status = models.TransferRejected
	if reason != "" {
		request.Notes = &reason
	}
	return request, nil
}

func (s *RequestService) GetRequest(requestID int) (*models.MovementRequest, error) {
	return s.rr.GetRequestRow(requestID)
}

func (s *RequestService) ListRequests(status *models.TransferStatus) ([]models.MovementRequest, error) {
	return s.rr.GetRequestRows(status)
}
