package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	attachmentdomain "github.com/macfixkou/repair-manager/internal/attachment/domain"
)

type Service interface {
	List(ctx context.Context, filter ListFilter) (ListResult, error)
	Get(ctx context.Context, id string) (CaseDetail, error)
	Create(ctx context.Context, req CreateCaseRequest) (CaseDetail, error)
	Update(ctx context.Context, id string, req UpdateCaseRequest) (CaseDetail, error)
	Delete(ctx context.Context, id string) error
	ShareExport(ctx context.Context, id string) (SharePayload, error)
	UpdateHistory(ctx context.Context, caseID string, historyID snowflake.ID, status string) (StatusHistory, error)
	DeleteHistory(ctx context.Context, caseID string, historyID snowflake.ID) error
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListFilter holds the raw list parameters; the service validates them.
type ListFilter struct {
	Query       string
	Status      string
	From        string
	To          string
	Sort        SortOrder
	StalledOnly bool
}

// CaseView is a case annotated with stall information and its attachment count.
type CaseView struct {
	Case
	StallInfo
	StatusLabel      string `json:"statusLabel"`
	AttachmentsCount int64  `json:"attachmentsCount"`
}

type ListResult struct {
	Cases      []CaseView     `json:"cases"`
	Thresholds map[Status]int `json:"thresholds"`
}

type CaseDetail struct {
	CaseView
	Attachments   []attachmentdomain.Attachment `json:"attachments"`
	StatusHistory []StatusHistory               `json:"statusHistory"`
}

type CreateCaseRequest struct {
	ReceivedAt        string
	AssigneeUserID    *snowflake.ID
	Status            string
	CustomerName      string
	CustomerContact   string
	CustomerNote      string
	Manufacturer      string
	ModelName         string
	ModelNumber       string
	BoardNumber       string
	Symptom           string
	InitialHypothesis string
	ActionsTaken      string
	Measurements      string
	NotDone           string
	NotDoneReason     string
	Outcome           string
	FinalDecision     string
	ShareAnonymously  bool
	ShareNote         string
}

// UpdateCaseRequest changes only the non-nil fields. An empty Outcome or
// FinalDecision clears it; a zero AssigneeUserID unassigns the case.
type UpdateCaseRequest struct {
	ReceivedAt        *string
	AssigneeUserID    *snowflake.ID
	Status            *string
	CustomerName      *string
	CustomerContact   *string
	CustomerNote      *string
	Manufacturer      *string
	ModelName         *string
	ModelNumber       *string
	BoardNumber       *string
	Symptom           *string
	InitialHypothesis *string
	ActionsTaken      *string
	Measurements      *string
	NotDone           *string
	NotDoneReason     *string
	Outcome           *string
	FinalDecision     *string
	ShareAnonymously  *bool
	ShareNote         *string
}

// SharePayload is the anonymized view of a case; it carries nothing that
// identifies the customer or the shop.
type SharePayload struct {
	Device    ShareDevice `json:"device"`
	Symptom   string      `json:"symptom"`
	Logs      ShareLogs   `json:"logs"`
	Result    ShareResult `json:"result"`
	ShareNote string      `json:"shareNote"`
}

type ShareDevice struct {
	Manufacturer string `json:"manufacturer"`
	ModelName    string `json:"modelName"`
	ModelNumber  string `json:"modelNumber"`
	BoardNumber  string `json:"boardNumber"`
}

type ShareLogs struct {
	InitialHypothesis string `json:"initialHypothesis"`
	ActionsTaken      string `json:"actionsTaken"`
	Measurements      string `json:"measurements"`
	NotDone           string `json:"notDone"`
	NotDoneReason     string `json:"notDoneReason"`
}

type ShareResult struct {
	Status        Status         `json:"status"`
	Outcome       *Outcome       `json:"outcome"`
	FinalDecision *FinalDecision `json:"finalDecision"`
}

// ListQuery is the validated form of ListFilter handed to the repository.
type ListQuery struct {
	Query  string
	Status *Status
	From   *time.Time
	To     *time.Time
	Sort   SortOrder
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrNotFound             = errors.New("case_not_found")
	ErrHistoryNotFound      = errors.New("status_history_not_found")
	ErrNotShareable         = errors.New("case_not_shareable")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidOutcome       = errors.New("invalid_outcome")
	ErrInvalidFinalDecision = errors.New("invalid_final_decision")
	ErrInvalidFrom          = errors.New("invalid_from")
	ErrInvalidTo            = errors.New("invalid_to")
	ErrInvalidReceivedAt    = errors.New("invalid_received_at")
	ErrInvalidSymptom       = errors.New("invalid_symptom")
	ErrInvalidCustomer      = errors.New("invalid_customer")
	ErrInvalidAssignee      = errors.New("invalid_assignee_user_id")
	ErrInvalidSort          = errors.New("invalid_sort")
	ErrNoChanges            = errors.New("invalid_request")
)
