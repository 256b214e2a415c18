package model

import "time"

// SettlementStatus tracks the on-chain prize registration of a survey.
type SettlementStatus string

const (
	SettlementNotRequired SettlementStatus = "not_required" // no prize
	SettlementDisabled    SettlementStatus = "disabled"     // prize set but no relayer configured
	SettlementPending     SettlementStatus = "pending"
	SettlementConfirmed   SettlementStatus = "confirmed"
	SettlementFailed      SettlementStatus = "failed"
)

// Settlement is the escrow state stored alongside a survey
type Settlement struct {
	Status     SettlementStatus `json:"status" bson:"status"`
	ApproveTx  string           `json:"approveTx,omitempty" bson:"approveTx,omitempty"`
	RegisterTx string           `json:"registerTx,omitempty" bson:"registerTx,omitempty"`
	Error      string           `json:"error,omitempty" bson:"error,omitempty"`
	Attempts   int              `json:"attempts" bson:"attempts"`
	UpdatedAt  time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// Receipt is what the relayer returns for a mined transaction.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	Status          string `json:"status"` // "success" or "reverted"
}
