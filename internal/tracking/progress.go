package tracking

import (
	"math"

	"delivery-tracking-service/internal/domain"
)

// Driver-facing progress counts derived from the current delivery set.
// Stateless: recomputed on every read.
type Progress struct {
	Total           int `json:"total"`
	Delivered       int `json:"delivered"`
	Failed          int `json:"failed"`
	Remaining       int `json:"remaining"`
	PercentComplete int `json:"percent_complete"`
}

// ComputeProgress derives the counts from deliveries. An empty set reports
// zero percent complete.
func ComputeProgress(deliveries []domain.Delivery) Progress {
	p := Progress{Total: len(deliveries)}

	for _, d := range deliveries {
		switch d.Status {
		case domain.StatusDelivered:
			p.Delivered++
		case domain.StatusFailed:
			p.Failed++
		}
	}

	p.Remaining = p.Total - p.Delivered - p.Failed
	if p.Total > 0 {
		p.PercentComplete = int(math.Round(100 * float64(p.Delivered+p.Failed) / float64(p.Total)))
	}

	return p
}
