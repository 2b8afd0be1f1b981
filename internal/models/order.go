package models

import "time"

// ConfirmatoryOrder is a variant action turned into a tracked lab task. A
// variant action becomes at most one order per report.
type ConfirmatoryOrder struct {
	BaseModel
	ReportID   string     `gorm:"size:64;uniqueIndex:idx_order_report_action" json:"reportId"`
	ActionID   string     `gorm:"size:64;uniqueIndex:idx_order_report_action" json:"actionId"`
	Gene       string     `gorm:"size:50" json:"gene"`
	Mutation   string     `gorm:"size:255" json:"hgvs"`
	ActionType ActionType `gorm:"size:32" json:"actionType"`
	Label      string     `gorm:"size:100" json:"label"`
	OrderedBy  string     `gorm:"size:64" json:"orderedBy"`
}

// ReferralConfirmation records a referral the backend accepted.
type ReferralConfirmation struct {
	BaseModel
	ReportID      string    `gorm:"size:64;index" json:"reportId"`
	Specialty     string    `gorm:"size:100" json:"specialty"`
	SuggestedDate time.Time `json:"suggestedDate"`
	Urgency       string    `gorm:"size:32" json:"urgency"`
	ConfirmedBy   string    `gorm:"size:64" json:"confirmedBy"`
}
