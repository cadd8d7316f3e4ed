package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ParseBalanceRequest deserializes a RawEvent's value into a BalanceRequest.
// The message key is used as request ID when the payload carries none; if
// neither is present a random ID is assigned so results can be correlated.
func ParseBalanceRequest(raw RawEvent) (BalanceRequest, error) {
	var req BalanceRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return BalanceRequest{}, fmt.Errorf("parse balance request: %w", err)
	}

	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	if err := validateRequest(req); err != nil {
		return BalanceRequest{}, fmt.Errorf("invalid balance request %s: %w", req.RequestID, err)
	}
	return req, nil
}

func validateRequest(req BalanceRequest) error {
	if req.Snapshot.FarmID == "" {
		return errors.New("snapshot has no farm_id")
	}
	if req.TimeFrame.Start.IsZero() || req.TimeFrame.End.IsZero() {
		return errors.New("time_frame requires start and end")
	}
	return nil
}

// NewBalanceResult stamps a computed balance for publication.
func NewBalanceResult(req BalanceRequest, balance NitrogenBalance) BalanceResult {
	return BalanceResult{
		RequestID:    req.RequestID,
		FarmID:       req.Snapshot.FarmID,
		TimeFrame:    req.TimeFrame,
		Balance:      balance,
		CalculatedAt: now(),
	}
}

// SerializeBalanceResult converts a BalanceResult into an OutputEvent keyed by
// request ID.
func SerializeBalanceResult(result BalanceResult) (OutputEvent, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize balance result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(result.RequestID),
		Value: data,
		Headers: map[string]string{
			"farm_id":       result.FarmID,
			"has_errors":    fmt.Sprintf("%t", result.Balance.HasErrors),
			"calculated_at": result.CalculatedAt.Format(time.RFC3339),
		},
	}, nil
}
