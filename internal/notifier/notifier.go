package notifier

import (
	"go.uber.org/zap"

	"github.com/jason-KITIO/k.kits-sub004/pkg/models"
)

// Sink receives fire-and-forget notifications about workflow events. Callers
// invoke it in a goroutine and never wait on it; correctness of the ledger and
// the workflows does not depend on delivery.
type Sink interface {
	TransferApproved(t *models.TransferRequest)
	TransferCompleted(t *models.TransferRequest)
	MovementRequestApproved(m *models.MovementRequest)
	CountDiscrepancy(c *models.InventoryCount)
}

type logSink struct {
	log *zap.Logger
}

// NewLogSink returns a sink that only logs. Real delivery (mail, chat) hangs
// off this interface in the deployment that needs it.
func NewLogSink(log *zap.Logger) Sink {
	return &logSink{log: log}
}

func (s *logSink) TransferApproved(t *models.TransferRequest) {
	s.log.Info("transfer approved",
		zap.Int("transfer_id", t.ID),
		zap.Int("product_id", t.ProductID),
		zap.Int("quantity", t.Quantity),
		zap.String("source", t.Source.Key()),
		zap.String("destination", t.Destination.Key()),
	)
}

func (s *logSink) TransferCompleted(t *models.TransferRequest) {
	s.log.Info("transfer completed",
		zap.Int("transfer_id", t.ID),
		zap.Int("product_id", t.ProductID),
		zap.Int("quantity", t.Quantity),
	)
}

func (s *logSink) MovementRequestApproved(m *models.MovementRequest) {
	s.log.Info("movement request approved",
		zap.Int("request_id", m.ID),
		zap.Int("product_id", m.ProductID),
		zap.Int("quantity", m.Quantity),
	)
}

func (s *logSink) CountDiscrepancy(c *models.InventoryCount) {
	difference := 0
	if c.Difference != nil {
		difference = *c.Difference
	}
	s.log.Warn("inventory count found a large discrepancy",
		zap.Int("count_id", c.ID),
		zap.Int("product_id", c.ProductID),
		zap.String("location", c.Location.Key()),
		zap.Int("difference", difference),
	)
}
