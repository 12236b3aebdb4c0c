package activities

import (
	"errors"

	"gorm.io/datatypes"
)

var (
	// ErrActivityNotFound indicates no activity exists for the identifier.
	ErrActivityNotFound = errors.New("activities: activity not found")
	// ErrInvalidActivity indicates a record request missing required fields.
	ErrInvalidActivity = errors.New("activities: invalid activity")
)

// Activity is one physical or operational event owned by a company. The
// payload is the type-specific field set consumed by the matching formula.
// Edits are explicit and always trigger recalculation.
type Activity struct {
	ActivityID        string         `gorm:"column:activity_id;primaryKey;size:190;not null"`
	CompanyID         string         `gorm:"column:company_id;size:190;not null;index:idx_activities_period,priority:1"`
	ReportingPeriodID string         `gorm:"column:reporting_period_id;size:190;not null;index:idx_activities_period,priority:2"`
	ActivityType      string         `gorm:"column:activity_type;size:64;not null"`
	PayloadJSON       datatypes.JSON `gorm:"column:payload_json;not null"`
	EnteredBy         string         `gorm:"column:entered_by;size:190;not null"`
	CreatedAtSeconds  int64          `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds  int64          `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Activity) TableName() string {
	return "activities"
}
