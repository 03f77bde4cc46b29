package hue

import (
	"encoding/json"
	"fmt"
)

// Bridge v1 error types.
const (
	ErrTypeUnauthorized      = 1
	ErrTypeResourceNotFound  = 3
	ErrTypeInvalidValue      = 7
	ErrTypeDeviceOff         = 201
	ErrTypeLinkButtonNotSet  = 101
	ErrTypeGroupTableFull    = 301
	ErrTypeScheduleTableFull = 401
)

// APIError is an entry of the v1 error envelope.
type APIError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hue: %s (type %d, %s)", e.Description, e.Type, e.Address)
}

type envelopeItem struct {
	Success json.RawMessage `json:"success,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// parseEnvelope decodes a v1 write response. The first error entry wins;
// object success entries are merged, others (delete confirmations) are
// ignored.
func parseEnvelope(data []byte) (map[string]any, error) {
	var items []envelopeItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode bridge response: %w", err)
	}

	result := make(map[string]any)
	for _, item := range items {
		if item.Error != nil {
			return nil, item.Error
		}
		var fields map[string]any
		if json.Unmarshal(item.Success, &fields) == nil {
			for k, v := range fields {
				result[k] = v
			}
		}
	}
	return result, nil
}
