package models

import "time"

// StageStatus is the persisted state of one background stage.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// Stage names the two links of the post-order chain.
type Stage string

const (
	StageInvoice Stage = "invoice"
	StageEmail   Stage = "email"
)

// StageState records progress of a single stage.
type StageState struct {
	Status    StageStatus `bson:"status" json:"status"`
	Attempts  int         `bson:"attempts" json:"attempts"`
	LastError string      `bson:"lastError,omitempty" json:"lastError,omitempty"`
	UpdatedAt time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// ChainStages holds both stages of an order's chain.
type ChainStages struct {
	Invoice StageState `bson:"invoice" json:"invoice"`
	Email   StageState `bson:"email" json:"email"`
}

// OrderChain is the inspectable state of the invoice → email pipeline of one order.
type OrderChain struct {
	OrderID        string      `bson:"orderId" json:"orderId"`
	CustomerID     string      `bson:"customerId" json:"customerId"`
	RecipientEmail string      `bson:"recipientEmail" json:"recipientEmail"`
	Stages         ChainStages `bson:"stages" json:"stages"`
	CreatedAt      time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// NewOrderChain returns a chain with both stages pending.
func NewOrderChain(orderID, customerID, email string, now time.Time) *OrderChain {
	pending := StageState{Status: StagePending, UpdatedAt: now}
	return &OrderChain{
		OrderID:        orderID,
		CustomerID:     customerID,
		RecipientEmail: email,
		Stages:         ChainStages{Invoice: pending, Email: pending},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// State returns the state of the named stage.
func (c *OrderChain) State(stage Stage) StageState {
	if stage == StageEmail {
		return c.Stages.Email
	}
	return c.Stages.Invoice
}
