package domain

import "time"

type DisputeStage string

const (
	DisputeStageCreated        DisputeStage = "created"
	DisputeStageUnderReview    DisputeStage = "under_review"
	DisputeStageActionRequired DisputeStage = "action_required"
	DisputeStageWon            DisputeStage = "won"
	DisputeStageLost           DisputeStage = "lost"
	DisputeStageClosed         DisputeStage = "closed"
)

// disputeStageRank orders dispute stages; a dispute never moves to a stage
// with a lower rank. won/lost/closed are terminal and share a rank.
var disputeStageRank = map[DisputeStage]int{
	DisputeStageCreated:        1,
	DisputeStageUnderReview:    2,
	DisputeStageActionRequired: 3,
	DisputeStageWon:            4,
	DisputeStageLost:           4,
	DisputeStageClosed:         4,
}

// DisputeStageRank returns the monotonic rank of a stage, 0 if unknown.
func DisputeStageRank(s DisputeStage) int {
	return disputeStageRank[s]
}

// Dispute tracks a chargeback-style dispute against a payment, unique per
// gateway dispute reference. Its stage only ever advances.
type Dispute struct {
	ID               string
	PaymentID        string
	GatewayPaymentID string
	GatewayDisputeID string
	Stage            DisputeStage
	StageRank        int
	Amount           int64 // minor currency units
	Reason           string
	RespondBy        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
