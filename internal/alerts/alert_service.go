package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

type AlertService struct {
	repo AlertRepository
	log  *zap.Logger
}

func NewAlertService(repo AlertRepository, log *zap.Logger) *AlertService {
	return &AlertService{repo: repo, log: log}
}

// alertIdentity keys a persisted row to its live classification so read state
// survives a recompute.
type alertIdentity struct {
	ProductID int
	Location  string
	Type      models.AlertType
}

// Evaluate rescans stock for the organization, classifies every entry and
// reconciles the persisted alert rows with the result. Rows whose condition
// cleared are deleted; rows that still hold keep their id and read state.
func (s *AlertService) Evaluate(organizationID int, loc *models.LocationRef) ([]models.StockAlert, error) {
	rows, err := s.repo.ListStockWithThresholds(organizationID, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to scan stock for alerts: %w", err)
	}

	persisted, err := s.repo.ListAlertRows(organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted alerts: %w", err)
	}

	existing := make(map[alertIdentity]models.StockAlert, len(persisted))
	for _, alert := range persisted {
		existing[alertIdentity{alert.ProductID, alert.Location.Key(), alert.AlertType}] = alert
	}

	live := make(map[alertIdentity]bool, len(rows))
	alerts := make([]models.StockAlert, 0, len(rows))
	for _, row := range rows {
		classification, ok := Classify(row.Quantity, row.MinStock, row.MaxStock)
		if !ok {
			continue
		}

		identity := alertIdentity{row.ProductID, row.Location().Key(), classification.Type}
		live[identity] = true

		alert := models.StockAlert{
			ID:             uuid.NewString(),
			OrganizationID: organizationID,
			ProductID:      row.ProductID,
			Location:       row.Location(),
			AlertType:      classification.Type,
			Severity:       classification.Severity,
			CurrentQty:     row.Quantity,
			ThresholdQty:   classification.ThresholdQty,
			PercentageLeft: classification.PercentageLeft,
			CreatedAt:      time.Now(),
		}

		if prev, ok := existing[identity]; ok {
			alert.ID = prev.ID
			alert.IsRead = prev.IsRead
			alert.ReadAt = prev.ReadAt
			alert.CreatedAt = prev.CreatedAt
		} else if err := s.repo.InsertAlertRow(&alert); err != nil {
			return nil, fmt.Errorf("failed to persist alert: %w", err)
		}

		alerts = append(alerts, alert)
	}

	// Conditions that no longer hold; their read state is worthless now.
	// A filtered rescan only prunes within the scanned location.
	var stale []string
	for identity, alert := range existing {
		if loc != nil && !alert.Location.Equal(*loc) {
			continue
		}
		if !live[identity] {
			stale = append(stale, alert.ID)
		}
	}
	if err := s.repo.DeleteAlertRows(stale); err != nil {
		s.log.Error("failed to prune cleared alerts", zap.Error(err))
	}

	return alerts, nil
}

func (s *AlertService) MarkRead(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.MarkRead(ids)
}

func (s *AlertService) MarkAllRead(organizationID int) error {
	return s.repo.MarkAllRead(organizationID)
}
