package models

import "time"

// Request kinds accepted on the pricing request topic.
const (
	KindPrice = "price"
	KindIV    = "iv"
)

// PricingMessage is a pricing request received over Kafka. Exactly one of
// Price or IV is set, matching Kind.
type PricingMessage struct {
	ID    string        `json:"id"`
	Kind  string        `json:"kind" validate:"required,oneof=price iv"`
	Price *PriceRequest `json:"price,omitempty"`
	IV    *IVRequest    `json:"iv,omitempty"`
}

// PricingReply is published to the reply topic for every request, including
// the ones that failed.
type PricingReply struct {
	ID      string         `json:"id"`
	Kind    string         `json:"kind"`
	Quote   *QuoteResponse `json:"quote,omitempty"`
	IV      *IVResponse    `json:"iv,omitempty"`
	Error   string         `json:"error,omitempty"`
	Created time.Time      `json:"created"`
}
