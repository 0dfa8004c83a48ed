package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AttendanceStrategy decides how attendance is tracked for an event. It is
// computed once by the classifier and cached on the event record.
type AttendanceStrategy string

const (
	StrategySingleMark     AttendanceStrategy = "SINGLE_MARK"
	StrategySessionBased   AttendanceStrategy = "SESSION_BASED"
	StrategyDayBased       AttendanceStrategy = "DAY_BASED"
	StrategyMilestoneBased AttendanceStrategy = "MILESTONE_BASED"
	StrategyPeriodic       AttendanceStrategy = "PERIODIC"
)

// Valid returns true when the strategy is a supported value.
func (s AttendanceStrategy) Valid() bool {
	switch s {
	case StrategySingleMark, StrategySessionBased, StrategyDayBased, StrategyMilestoneBased, StrategyPeriodic:
		return true
	default:
		return false
	}
}

// CheckinWindow is one expected check-in slot in an event's attendance
// timeline. The timeline is advisory metadata for the marking UI, not an
// enforcement mechanism.
type CheckinWindow struct {
	Name     string    `json:"name"`
	OpensAt  time.Time `json:"opens_at"`
	ClosesAt time.Time `json:"closes_at"`
}

// Timeline is the ordered sequence of check-in windows for an event. Stored
// as JSONB alongside the cached strategy.
type Timeline []CheckinWindow

// Value implements driver.Valuer for JSONB storage.
func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSONB storage.
func (t *Timeline) Scan(src interface{}) error {
	if src == nil {
		*t = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported timeline source type %T", src)
	}
	return json.Unmarshal(raw, t)
}
