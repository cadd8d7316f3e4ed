package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// BalanceRequest asks for the nitrogen balance of a farm over a time frame.
// PublicDataURL is optional; the service default is used when empty.
type BalanceRequest struct {
	RequestID     string    `json:"request_id"`
	TimeFrame     TimeFrame `json:"time_frame"`
	PublicDataURL string    `json:"public_data_url,omitempty"`
	Snapshot      Snapshot  `json:"snapshot"`
}

// BalanceResult is the published outcome of a BalanceRequest.
type BalanceResult struct {
	RequestID    string          `json:"request_id"`
	FarmID       string          `json:"farm_id"`
	TimeFrame    TimeFrame       `json:"time_frame"`
	Balance      NitrogenBalance `json:"balance"`
	CalculatedAt time.Time       `json:"calculated_at"`
}
