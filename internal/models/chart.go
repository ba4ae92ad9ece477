package models

import (
	"encoding/json"
	"fmt"

	"github.com/kjannette/chart-cache/internal/apperr"
)

// ChartPoint is one sample of a basket chart: a timestamp and the price of
// every symbol in the basket at that time.
type ChartPoint struct {
	Timestamp int64              `json:"timestamp" msgpack:"timestamp" cbor:"timestamp"`
	Prices    map[string]float64 `json:"prices" msgpack:"prices" cbor:"prices"`
}

// ChartPayload is the full cached series for one basket-year. Data is kept in
// the order it was written.
type ChartPayload struct {
	BasketID string       `json:"basketId" msgpack:"basketId" cbor:"basketId"`
	Data     []ChartPoint `json:"data" msgpack:"data" cbor:"data"`
}

// ChartRecord is the persisted row. Payload holds the JSON encoding of a
// ChartPayload.
type ChartRecord struct {
	BasketID    string `gorm:"column:basket_id;primaryKey;type:TEXT;not null"`
	Year        int    `gorm:"column:year;primaryKey;autoIncrement:false;type:INTEGER;not null"`
	Payload     string `gorm:"column:payload;type:TEXT;not null"`
	UpdatedAtMs int64  `gorm:"column:updated_at_ms;type:INTEGER;not null"`
}

func (ChartRecord) TableName() string { return "chart_cache" }

// NewChartRecord serializes p for storage under (basketID, year).
func NewChartRecord(basketID string, year int, p *ChartPayload, updatedAtMs int64) (*ChartRecord, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", apperr.ErrValidation, err)
	}
	return &ChartRecord{
		BasketID:    basketID,
		Year:        year,
		Payload:     string(b),
		UpdatedAtMs: updatedAtMs,
	}, nil
}

type WriteResult struct {
	OK          bool  `json:"ok" msgpack:"ok" cbor:"ok"`
	UpdatedAtMs int64 `json:"updatedAtMs" msgpack:"updatedAtMs" cbor:"updatedAtMs"`
}

type HealthStatus struct {
	OK bool  `json:"ok"`
	TS int64 `json:"ts"`
}
