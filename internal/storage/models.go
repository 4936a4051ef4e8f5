package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Sample statuses.
const (
	SampleStatusOK     = "ok"
	SampleStatusNoData = "no-data"
)

// ScoreSample represents one persisted scoring pass for a model.
type ScoreSample struct {
	Bucket           time.Time
	ModelID          string
	Category         string
	QScore           float64
	LatencyScore     float64
	ThroughputScore  float64
	QualityScore     float64
	ReliabilityScore float64
	MintEligible     bool
	Status           string
	Snapshot         json.RawMessage
	CreatedAt        time.Time
}

// TradeOrder captures an order decision for auditing. Unit amounts are
// stored as NUMERIC strings to keep the 8-digit integers exact.
type TradeOrder struct {
	ID             string
	ModelID        string
	Side           string
	PriceUnits     decimal.Decimal
	AmountGASUnits decimal.Decimal
	TokensOutUnits decimal.Decimal
	Status         string
	TxHash         string
	Reason         string
	CreatedAt      time.Time
}
