package alerts

import "github.com/jason-KITIO/k.kits-sub004/pkg/models"

// Classification is the result of judging one stock entry against its
// product thresholds.
type Classification struct {
	Type           models.AlertType
	Severity       models.AlertSeverity
	ThresholdQty   int
	PercentageLeft float64
}

// Classify is a pure function of current quantity and thresholds. Alerts are
// recomputed from live ledger state on demand, never maintained incrementally.
func Classify(quantity, minStock int, maxStock *int) (Classification, bool) {
	percentage := 0.0
	if minStock > 0 {
		percentage = float64(quantity) / float64(minStock) * 100
	}

	switch {
	case quantity == 0:
		return Classification{
			Type:           models.AlertOutOfStock,
			Severity:       models.SeverityCritical,
			ThresholdQty:   minStock,
			PercentageLeft: percentage,
		}, true
	case quantity <= minStock:
		severity := models.SeverityMedium
		if float64(quantity) <= float64(minStock)*0.2 {
			severity = models.SeverityHigh
		}
		return Classification{
			Type:           models.AlertLowStock,
			Severity:       severity,
			ThresholdQty:   minStock,
			PercentageLeft: percentage,
		}, true
	case maxStock != nil && quantity > *maxStock:
		return Classification{
			Type:           models.AlertOverstock,
			Severity:       models.SeverityLow,
			ThresholdQty:   *maxStock,
			PercentageLeft: percentage,
		}, true
	default:
		return Classification{}, false
	}
}
