package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	attachmentdomain "github.com/macfixkou/repair-manager/internal/attachment/domain"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/observability/metrics"
	orgdomain "github.com/macfixkou/repair-manager/internal/organization/domain"
	"github.com/macfixkou/repair-manager/internal/orgcontext"
	"github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"github.com/macfixkou/repair-manager/internal/stall"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	AttachmentRepo attachmentdomain.Repository
	OrgSvc         orgdomain.Service
	Metrics        *metrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	attachmentRepo attachmentdomain.Repository
	orgSvc         orgdomain.Service
	metrics        *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("repaircase.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		attachmentRepo: p.AttachmentRepo,
		orgSvc:         p.OrgSvc,
		metrics:        p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListResult{}, domain.ErrInvalidOrganization
	}

	query, err := parseFilter(filter)
	if err != nil {
		return domain.ListResult{}, err
	}

	thresholds, err := s.orgSvc.ResolveThresholds(ctx, orgID)
	if err != nil {
		return domain.ListResult{}, err
	}

	rows, err := s.repo.List(ctx, s.db, orgID, query)
	if err != nil {
		return domain.ListResult{}, err
	}

	now := s.clock.Now()
	cases := make([]domain.CaseView, 0, len(rows))
	stalled := 0
	for _, row := range rows {
		view := annotate(row.Case, row.AttachmentsCount, thresholds, now)
		if view.Stalled {
			stalled++
		} else if filter.StalledOnly {
			continue
		}
		cases = append(cases, view)
	}

	s.metrics.RecordCaseList(ctx, "list", stalled)
	return domain.ListResult{Cases: cases, Thresholds: thresholds}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.CaseDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.CaseDetail{}, domain.ErrInvalidOrganization
	}

	c, err := s.find(ctx, s.db, orgID, id)
	if err != nil {
		return domain.CaseDetail{}, err
	}
	return s.detail(ctx, s.db, c)
}

func (s *Service) Create(ctx context.Context, req domain.CreateCaseRequest) (domain.CaseDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.CaseDetail{}, domain.ErrInvalidOrganization
	}

	c, err := newCase(req)
	if err != nil {
		return domain.CaseDetail{}, err
	}

	now := s.clock.Now()
	c.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	c.OrgID = orgID
	c.CreatedAt = now
	c.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkAssignee(ctx, tx, orgID, c.AssigneeUserID); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, c); err != nil {
			return err
		}
		return s.appendHistory(ctx, tx, c, now)
	})
	if err != nil {
		return domain.CaseDetail{}, err
	}

	s.metrics.RecordCaseCreated(ctx, string(c.Status))
	s.log.Info("case created",
		zap.String("case_id", c.ID),
		zap.String("org_id", orgID.String()),
		zap.String("status", string(c.Status)),
	)
	return s.detail(ctx, s.db, c)
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateCaseRequest) (domain.CaseDetail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.CaseDetail{}, domain.ErrInvalidOrganization
	}
	if req == (domain.UpdateCaseRequest{}) {
		return domain.CaseDetail{}, domain.ErrNoChanges
	}

	var updated *domain.Case
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.find(ctx, tx, orgID, id)
		if err != nil {
			return err
		}

		previous := c.Status
		if err := applyUpdate(c, req); err != nil {
			return err
		}
		if req.AssigneeUserID != nil {
			if err := s.checkAssignee(ctx, tx, orgID, c.AssigneeUserID); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		c.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, c); err != nil {
			return err
		}
		if c.Status != previous {
			if err := s.appendHistory(ctx, tx, c, now); err != nil {
				return err
			}
		}

		updated = c
		return nil
	})
	if err != nil {
		return domain.CaseDetail{}, err
	}
	return s.detail(ctx, s.db, updated)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOrganization
	}

	deleted, err := s.repo.SoftDelete(ctx, s.db, orgID, strings.TrimSpace(id), s.clock.Now())
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) ShareExport(ctx context.Context, id string) (domain.SharePayload, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.SharePayload{}, domain.ErrInvalidOrganization
	}

	c, err := s.find(ctx, s.db, orgID, id)
	if err != nil {
		return domain.SharePayload{}, err
	}
	if !c.ShareAnonymously {
		return domain.SharePayload{}, domain.ErrNotShareable
	}

	return domain.SharePayload{
		Device: domain.ShareDevice{
			Manufacturer: c.Manufacturer,
			ModelName:    c.ModelName,
			ModelNumber:  c.ModelNumber,
			BoardNumber:  c.BoardNumber,
		},
		Symptom: c.Symptom,
		Logs: domain.ShareLogs{
			InitialHypothesis: c.InitialHypothesis,
			ActionsTaken:      c.ActionsTaken,
			Measurements:      c.Measurements,
			NotDone:           c.NotDone,
			NotDoneReason:     c.NotDoneReason,
		},
		Result: domain.ShareResult{
			Status:        c.Status,
			Outcome:       c.Outcome,
			FinalDecision: c.FinalDecision,
		},
		ShareNote: c.ShareNote,
	}, nil
}

// UpdateHistory rewrites the status of one history entry. The case's own
// status is left alone.
func (s *Service) UpdateHistory(ctx context.Context, caseID string, historyID snowflake.ID, status string) (domain.StatusHistory, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.StatusHistory{}, domain.ErrInvalidOrganization
	}

	next, err := domain.ParseStatus(status)
	if err != nil {
		return domain.StatusHistory{}, err
	}

	h, err := s.findHistory(ctx, orgID, caseID, historyID)
	if err != nil {
		return domain.StatusHistory{}, err
	}
	if err := s.repo.UpdateHistoryStatus(ctx, s.db, orgID, h.ID, next); err != nil {
		return domain.StatusHistory{}, err
	}
	h.Status = next
	return *h, nil
}

func (s *Service) DeleteHistory(ctx context.Context, caseID string, historyID snowflake.ID) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOrganization
	}

	h, err := s.findHistory(ctx, orgID, caseID, historyID)
	if err != nil {
		return err
	}
	return s.repo.DeleteHistory(ctx, s.db, orgID, h.ID)
}

func (s *Service) find(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id string) (*domain.Case, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrNotFound
	}
	c, err := s.repo.FindByID(ctx, db, orgID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// checkAssignee rejects an assignee that is not a user of orgID. A nil id
// clears the assignment and always passes.
func (s *Service) checkAssignee(ctx context.Context, db *gorm.DB, orgID snowflake.ID, userID *snowflake.ID) error {
	if userID == nil {
		return nil
	}
	ok, err := s.repo.UserInOrg(ctx, db, orgID, *userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidAssignee
	}
	return nil
}

func (s *Service) findHistory(ctx context.Context, orgID snowflake.ID, caseID string, historyID snowflake.ID) (*domain.StatusHistory, error) {
	c, err := s.find(ctx, s.db, orgID, caseID)
	if err != nil {
		return nil, err
	}
	h, err := s.repo.FindHistory(ctx, s.db, orgID, c.ID, historyID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, domain.ErrHistoryNotFound
	}
	return h, nil
}

func (s *Service) appendHistory(ctx context.Context, db *gorm.DB, c *domain.Case, at time.Time) error {
	return s.repo.InsertHistory(ctx, db, &domain.StatusHistory{
		ID:        s.genID.Generate(),
		CaseID:    c.ID,
		OrgID:     c.OrgID,
		Status:    c.Status,
		CreatedAt: at,
	})
}

func (s *Service) detail(ctx context.Context, db *gorm.DB, c *domain.Case) (domain.CaseDetail, error) {
	thresholds, err := s.orgSvc.ResolveThresholds(ctx, c.OrgID)
	if err != nil {
		return domain.CaseDetail{}, err
	}
	attachments, err := s.attachmentRepo.ListByCase(ctx, db, c.OrgID, c.ID)
	if err != nil {
		return domain.CaseDetail{}, err
	}
	history, err := s.repo.ListHistory(ctx, db, c.OrgID, c.ID)
	if err != nil {
		return domain.CaseDetail{}, err
	}

	return domain.CaseDetail{
		CaseView:      annotate(*c, int64(len(attachments)), thresholds, s.clock.Now()),
		Attachments:   attachments,
		StatusHistory: history,
	}, nil
}

func annotate(c domain.Case, attachments int64, thresholds stall.Thresholds, now time.Time) domain.CaseView {
	return domain.CaseView{
		Case:             c,
		StallInfo:        stall.Calculate(c.Status, c.ReceivedAt, thresholds, now),
		StatusLabel:      c.Status.Label(),
		AttachmentsCount: attachments,
	}
}
