package service

import (
	"strings"

	"github.com/macfixkou/repair-manager/internal/repaircase/domain"
)

func parseFilter(f domain.ListFilter) (domain.ListQuery, error) {
	q := domain.ListQuery{Query: strings.TrimSpace(f.Query), Sort: domain.SortDesc}

	switch domain.SortOrder(strings.ToLower(strings.TrimSpace(string(f.Sort)))) {
	case "", domain.SortDesc:
	case domain.SortAsc:
		q.Sort = domain.SortAsc
	default:
		return domain.ListQuery{}, domain.ErrInvalidSort
	}

	if raw := strings.TrimSpace(f.Status); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return domain.ListQuery{}, err
		}
		q.Status = &status
	}
	if raw := strings.TrimSpace(f.From); raw != "" {
		from, err := domain.ParseTime(raw, false)
		if err != nil {
			return domain.ListQuery{}, domain.ErrInvalidFrom
		}
		q.From = &from
	}
	if raw := strings.TrimSpace(f.To); raw != "" {
		to, err := domain.ParseTime(raw, true)
		if err != nil {
			return domain.ListQuery{}, domain.ErrInvalidTo
		}
		q.To = &to
	}
	return q, nil
}

func newCase(req domain.CreateCaseRequest) (*domain.Case, error) {
	symptom := strings.TrimSpace(req.Symptom)
	if symptom == "" {
		return nil, domain.ErrInvalidSymptom
	}
	receivedAt, err := domain.ParseTime(req.ReceivedAt, false)
	if err != nil {
		return nil, domain.ErrInvalidReceivedAt
	}
	name := strings.TrimSpace(req.CustomerName)
	contact := strings.TrimSpace(req.CustomerContact)
	if name == "" && contact == "" {
		return nil, domain.ErrInvalidCustomer
	}

	status := domain.InitialStatus
	if strings.TrimSpace(req.Status) != "" {
		if status, err = domain.ParseStatus(req.Status); err != nil {
			return nil, err
		}
	}
	outcome, err := optionalOutcome(req.Outcome)
	if err != nil {
		return nil, err
	}
	decision, err := optionalDecision(req.FinalDecision)
	if err != nil {
		return nil, err
	}

	c := &domain.Case{
		ReceivedAt:        receivedAt,
		Status:            status,
		CustomerName:      name,
		CustomerContact:   contact,
		CustomerNote:      strings.TrimSpace(req.CustomerNote),
		Manufacturer:      strings.TrimSpace(req.Manufacturer),
		ModelName:         strings.TrimSpace(req.ModelName),
		ModelNumber:       strings.TrimSpace(req.ModelNumber),
		BoardNumber:       strings.TrimSpace(req.BoardNumber),
		Symptom:           symptom,
		InitialHypothesis: strings.TrimSpace(req.InitialHypothesis),
		ActionsTaken:      strings.TrimSpace(req.ActionsTaken),
		Measurements:      strings.TrimSpace(req.Measurements),
		NotDone:           strings.TrimSpace(req.NotDone),
		NotDoneReason:     strings.TrimSpace(req.NotDoneReason),
		Outcome:           outcome,
		FinalDecision:     decision,
		ShareAnonymously:  req.ShareAnonymously,
		ShareNote:         strings.TrimSpace(req.ShareNote),
	}
	if req.AssigneeUserID != nil && *req.AssigneeUserID != 0 {
		id := *req.AssigneeUserID
		c.AssigneeUserID = &id
	}
	return c, nil
}

// applyUpdate copies the provided fields of req onto c and re-checks the
// invariants that Create enforces.
func applyUpdate(c *domain.Case, req domain.UpdateCaseRequest) error {
	if req.ReceivedAt != nil {
		receivedAt, err := domain.ParseTime(*req.ReceivedAt, false)
		if err != nil {
			return domain.ErrInvalidReceivedAt
		}
		c.ReceivedAt = receivedAt
	}
	if req.Status != nil {
		status, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return err
		}
		c.Status = status
	}
	if req.Outcome != nil {
		outcome, err := optionalOutcome(*req.Outcome)
		if err != nil {
			return err
		}
		c.Outcome = outcome
	}
	if req.FinalDecision != nil {
		decision, err := optionalDecision(*req.FinalDecision)
		if err != nil {
			return err
		}
		c.FinalDecision = decision
	}
	if req.AssigneeUserID != nil {
		if *req.AssigneeUserID == 0 {
			c.AssigneeUserID = nil
		} else {
			id := *req.AssigneeUserID
			c.AssigneeUserID = &id
		}
	}
	if req.Symptom != nil {
		symptom := strings.TrimSpace(*req.Symptom)
		if symptom == "" {
			return domain.ErrInvalidSymptom
		}
		c.Symptom = symptom
	}

	setText(&c.CustomerName, req.CustomerName)
	setText(&c.CustomerContact, req.CustomerContact)
	if c.CustomerName == "" && c.CustomerContact == "" {
		return domain.ErrInvalidCustomer
	}

	setText(&c.CustomerNote, req.CustomerNote)
	setText(&c.Manufacturer, req.Manufacturer)
	setText(&c.ModelName, req.ModelName)
	setText(&c.ModelNumber, req.ModelNumber)
	setText(&c.BoardNumber, req.BoardNumber)
	setText(&c.InitialHypothesis, req.InitialHypothesis)
	setText(&c.ActionsTaken, req.ActionsTaken)
	setText(&c.Measurements, req.Measurements)
	setText(&c.NotDone, req.NotDone)
	setText(&c.NotDoneReason, req.NotDoneReason)
	setText(&c.ShareNote, req.ShareNote)
	if req.ShareAnonymously != nil {
		c.ShareAnonymously = *req.ShareAnonymously
	}
	return nil
}

func setText(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func optionalOutcome(raw string) (*domain.Outcome, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	o, err := domain.ParseOutcome(raw)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func optionalDecision(raw string) (*domain.FinalDecision, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := domain.ParseFinalDecision(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
