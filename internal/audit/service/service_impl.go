package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/macfixkou/repair-manager/internal/audit/domain"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	principal, ok := orgcontext.PrincipalFromContext(ctx)
	if !ok || principal.OrgID == 0 {
		return auditdomain.ErrInvalidOrganization
	}
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	record := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		OrgID:      principal.OrgID,
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(entry.TargetID),
		Metadata:   metadataMap(entry.Metadata),
		IPAddress:  optionalString(entry.IPAddress),
		UserAgent:  optionalString(entry.UserAgent),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if principal.UserID != 0 {
		actor := principal.UserID
		record.ActorID = &actor
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidOrganization
	}

	pageSize := req.Limit
	switch {
	case pageSize < 0 || pageSize > maxPageSize:
		return auditdomain.ListResponse{}, auditdomain.ErrInvalidLimit
	case pageSize == 0:
		pageSize = defaultPageSize
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		OrgID:      orgID,
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Before:     req.Before,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	resp := auditdomain.ListResponse{AuditLogs: items}
	if len(items) > pageSize {
		resp.AuditLogs = items[:pageSize]
		next := resp.AuditLogs[pageSize-1].ID
		resp.NextBefore = &next
	}
	if resp.AuditLogs == nil {
		resp.AuditLogs = []auditdomain.AuditLog{}
	}
	return resp, nil
}

func metadataMap(metadata map[string]any) datatypes.JSONMap {
	if len(metadata) == 0 {
		return nil
	}
	payload := make(datatypes.JSONMap, len(metadata))
	for key, value := range metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	return payload
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
