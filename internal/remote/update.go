package remote

import (
	"context"
	"encoding/json"
)

// Node field names as stored on the remote record.
const (
	FieldMovements = "Movements"
	FieldDuration  = "duration"
	FieldTimestamp = "timestamp"
	FieldPicking   = "picking"
)

// Update is a partial write to the robot node. Empty strings and a nil
// Duration are omitted, so an update never clobbers fields it does not set.
type Update struct {
	Movements string `json:"Movements,omitempty"`
	Duration  *int   `json:"duration,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Picking   string `json:"picking,omitempty"`
}

// Fields returns the set fields keyed by their node field name.
func (u Update) Fields() map[string]any {
	fields := make(map[string]any, 4)
	if u.Movements != "" {
		fields[FieldMovements] = u.Movements
	}
	if u.Duration != nil {
		fields[FieldDuration] = *u.Duration
	}
	if u.Timestamp != "" {
		fields[FieldTimestamp] = u.Timestamp
	}
	if u.Picking != "" {
		fields[FieldPicking] = u.Picking
	}
	return fields
}

// Empty reports whether the update sets no field.
func (u Update) Empty() bool {
	return u.Movements == "" && u.Duration == nil && u.Timestamp == "" && u.Picking == ""
}

// MarshalPayload encodes the update as a JSON object.
func (u Update) MarshalPayload() ([]byte, error) {
	return json.Marshal(u)
}

// Seconds is a helper for building Duration.
func Seconds(n int) *int {
	return &n
}

// DetectionHandler receives raw detection payloads. It must not block.
type DetectionHandler func(payload []byte)

// Channel is a remote robot node.
type Channel interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// Write applies a partial update to the node.
	Write(ctx context.Context, u Update) error

	// SubscribeDetection delivers detection payloads to handler until the
	// returned cancel function is called.
	SubscribeDetection(ctx context.Context, handler DetectionHandler) (cancel func() error, err error)
}
