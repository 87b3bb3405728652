package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Case is one customer device brought in for repair.
type Case struct {
	ID             string        `gorm:"primaryKey;size:26" json:"id"`
	OrgID          snowflake.ID  `gorm:"not null;index:idx_repair_cases_org_received,priority:1" json:"organizationId"`
	ReceivedAt     time.Time     `gorm:"not null;index:idx_repair_cases_org_received,priority:2" json:"receivedAt"`
	AssigneeUserID *snowflake.ID `json:"assigneeUserId,omitempty"`
	Status         Status        `gorm:"size:32;not null" json:"status"`

	CustomerName    string `gorm:"size:200;not null;default:''" json:"customerName"`
	CustomerContact string `gorm:"size:200;not null;default:''" json:"customerContact"`
	CustomerNote    string `gorm:"type:text;not null" json:"customerNote"`

	Manufacturer string `gorm:"size:200;not null;default:''" json:"manufacturer"`
	ModelName    string `gorm:"size:200;not null;default:''" json:"modelName"`
	ModelNumber  string `gorm:"size:200;not null;default:''" json:"modelNumber"`
	BoardNumber  string `gorm:"size:200;not null;default:''" json:"boardNumber"`

	Symptom           string `gorm:"type:text;not null" json:"symptom"`
	InitialHypothesis string `gorm:"type:text;not null" json:"initialHypothesis"`
	ActionsTaken      string `gorm:"type:text;not null" json:"actionsTaken"`
	Measurements      string `gorm:"type:text;not null" json:"measurements"`
	NotDone           string `gorm:"type:text;not null" json:"notDone"`
	NotDoneReason     string `gorm:"type:text;not null" json:"notDoneReason"`

	Outcome       *Outcome       `gorm:"size:32" json:"outcome"`
	FinalDecision *FinalDecision `gorm:"size:32" json:"finalDecision"`

	ShareAnonymously bool   `gorm:"not null;default:false" json:"shareAnonymously"`
	ShareNote        string `gorm:"type:text;not null" json:"shareNote"`

	CreatedAt time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"not null" json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

func (Case) TableName() string { return "repair_cases" }

// StatusHistory is one entry of a case's status log.
type StatusHistory struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CaseID    string       `gorm:"size:26;not null;index" json:"caseId"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"organizationId"`
	Status    Status       `gorm:"size:32;not null" json:"status"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
}

func (StatusHistory) TableName() string { return "case_status_histories" }

// CaseRow is a case as read by the list query, with its attachment count.
type CaseRow struct {
	Case
	AttachmentsCount int64 `gorm:"column:attachments_count"`
}

// StallInfo is the computed stall annotation of a case.
type StallInfo struct {
	AgeDays        int  `json:"ageDays"`
	Stalled        bool `json:"stalled"`
	StallThreshold int  `json:"stallThreshold"`
	StalledByDays  int  `json:"stalledByDays"`
}
