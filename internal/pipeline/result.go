package pipeline

// Outcome classes reported by Process
const (
	OutcomeCreated   = "created"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

const reasonDuplicate = "duplicate"

// Result is what Process returns for every event. Exactly one of these holds:
// Success (record created), Skipped (nothing to do or duplicate), or neither
// (failure, with Message set).
type Result struct {
	Success       bool     `json:"success"`
	Skipped       bool     `json:"skipped,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	ExistingCount int      `json:"existingCount,omitempty"`
	Message       string   `json:"message,omitempty"`
	RecordID      string   `json:"recordId,omitempty"`
	Liters        *float64 `json:"liters,omitempty"`
	PriceTotal    *float64 `json:"priceTotal,omitempty"`
	PricePerLiter *float64 `json:"pricePerLiter,omitempty"`
	StationName   string   `json:"stationName,omitempty"`
}

// Outcome classifies the result
func (r Result) Outcome() string {
	switch {
	case r.Success:
		return OutcomeCreated
	case r.Skipped && r.Reason == reasonDuplicate:
		return OutcomeDuplicate
	case r.Skipped:
		return OutcomeSkipped
	default:
		return OutcomeFailed
	}
}

func skipped(reason string) Result {
	return Result{Skipped: true, Reason: reason}
}

func duplicate(existing int) Result {
	return Result{Skipped: true, Reason: reasonDuplicate, ExistingCount: existing}
}

func failed(err error) Result {
	return Result{Message: err.Error()}
}
