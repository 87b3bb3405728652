package domain

import "strings"

// Status is the lifecycle state of a repair case.
type Status string

const (
	StatusIntake     Status = "INTAKE"
	StatusDiagnosing Status = "DIAGNOSING"
	StatusRepairing  Status = "REPAIRING"
	StatusCompleted  Status = "COMPLETED"
	StatusReturned   Status = "RETURNED"
	StatusDeclined   Status = "DECLINED"
	StatusCancelled  Status = "CANCELLED"
	StatusBuyback    Status = "BUYBACK"
	StatusDisposed   Status = "DISPOSED"
)

// InitialStatus is assigned to a case created without an explicit status.
const InitialStatus = StatusIntake

type Outcome string

const (
	OutcomeSuccess    Outcome = "SUCCESS"
	OutcomeFailure    Outcome = "FAILURE"
	OutcomeUnresolved Outcome = "UNRESOLVED"
)

type FinalDecision string

const (
	DecisionRepair  FinalDecision = "REPAIR"
	DecisionReturn  FinalDecision = "RETURN"
	DecisionBuyback FinalDecision = "BUYBACK"
	DecisionDispose FinalDecision = "DISPOSE"
)

// Option is one entry of a value/label table.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// The tables below are the only place labels are defined; order is display order.
var (
	statusOptions = []Option{
		{string(StatusIntake), "受付"},
		{string(StatusDiagnosing), "診断中"},
		{string(StatusRepairing), "修理中"},
		{string(StatusCompleted), "完了"},
		{string(StatusReturned), "返却"},
		{string(StatusDeclined), "再修理"},
		{string(StatusCancelled), "キャンセル"},
		{string(StatusBuyback), "買取"},
		{string(StatusDisposed), "廃棄"},
	}
	outcomeOptions = []Option{
		{string(OutcomeSuccess), "成功"},
		{string(OutcomeFailure), "失敗"},
		{string(OutcomeUnresolved), "未解決"},
	}
	decisionOptions = []Option{
		{string(DecisionRepair), "修理して返却"},
		{string(DecisionReturn), "そのまま返却"},
		{string(DecisionBuyback), "買取"},
		{string(DecisionDispose), "廃棄"},
	}
)

// Statuses returns every status in display order.
func Statuses() []Status {
	out := make([]Status, len(statusOptions))
	for i, o := range statusOptions {
		out[i] = Status(o.Value)
	}
	return out
}

func StatusOptions() []Option   { return append([]Option(nil), statusOptions...) }
func OutcomeOptions() []Option  { return append([]Option(nil), outcomeOptions...) }
func DecisionOptions() []Option { return append([]Option(nil), decisionOptions...) }

func (s Status) Valid() bool { return lookup(statusOptions, string(s)) != "" }

// Label returns the display label, or the raw value when unknown.
func (s Status) Label() string { return labelOr(statusOptions, string(s)) }

func (o Outcome) Valid() bool       { return lookup(outcomeOptions, string(o)) != "" }
func (o Outcome) Label() string     { return labelOr(outcomeOptions, string(o)) }
func (d FinalDecision) Valid() bool { return lookup(decisionOptions, string(d)) != "" }
func (d FinalDecision) Label() string {
	return labelOr(decisionOptions, string(d))
}

// ParseStatus accepts a status value, ignoring surrounding space.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

func ParseOutcome(raw string) (Outcome, error) {
	o := Outcome(strings.TrimSpace(raw))
	if !o.Valid() {
		return "", ErrInvalidOutcome
	}
	return o, nil
}

func ParseFinalDecision(raw string) (FinalDecision, error) {
	d := FinalDecision(strings.TrimSpace(raw))
	if !d.Valid() {
		return "", ErrInvalidFinalDecision
	}
	return d, nil
}

func lookup(table []Option, value string) string {
	for _, o := range table {
		if o.Value == value {
			return o.Label
		}
	}
	return ""
}

func labelOr(table []Option, value string) string {
	if label := lookup(table, value); label != "" {
		return label
	}
	return value
}
