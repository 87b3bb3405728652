package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/config"
	"github.com/macfixkou/repair-manager/internal/organization/domain"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"github.com/macfixkou/repair-manager/internal/stall"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   domain.Repository
	Clock  clock.Clock
	Policy *config.AttachmentPolicyHolder
}

type service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	clock  clock.Clock
	policy *config.AttachmentPolicyHolder
}

func NewService(p Params) domain.Service {
	return &service{
		db:     p.DB,
		log:    p.Log.Named("organization.service"),
		repo:   p.Repo,
		clock:  p.Clock,
		policy: p.Policy,
	}
}

func (s *service) GetSettings(ctx context.Context, orgID snowflake.ID) (domain.Settings, error) {
	return s.load(ctx, s.repo, orgID)
}

func (s *service) ResolveThresholds(ctx context.Context, orgID snowflake.ID) (stall.Thresholds, error) {
	settings, err := s.load(ctx, s.repo, orgID)
	if err != nil {
		return nil, err
	}
	return settings.StallThresholds, nil
}

func (s *service) UpdateSettings(ctx context.Context, orgID snowflake.ID, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	overrides, err := validateThresholds(req.StallThresholds)
	if err != nil {
		return domain.Settings{}, err
	}
	if !validLimit(req.AttachmentLimitFree) {
		return domain.Settings{}, domain.ErrInvalidAttachmentLimitFree
	}
	if !validLimit(req.AttachmentLimitPaid) {
		return domain.Settings{}, domain.ErrInvalidAttachmentLimitPaid
	}

	var updated domain.Settings
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, orgID)
		if err != nil {
			return err
		}

		updated = domain.Settings{
			StallThresholds:     current.StallThresholds.Merge(overrides),
			AttachmentLimitFree: current.AttachmentLimitFree,
			AttachmentLimitPaid: current.AttachmentLimitPaid,
			Version:             current.Version + 1,
		}
		if req.AttachmentLimitFree != nil {
			updated.AttachmentLimitFree = *req.AttachmentLimitFree
		}
		if req.AttachmentLimitPaid != nil {
			updated.AttachmentLimitPaid = *req.AttachmentLimitPaid
		}

		return repo.UpsertSettings(ctx, domain.OrganizationSettings{
			OrgID:               orgID,
			Version:             updated.Version,
			StallThresholds:     updated.StallThresholds.Encode(),
			AttachmentLimitFree: updated.AttachmentLimitFree,
			AttachmentLimitPaid: updated.AttachmentLimitPaid,
			UpdatedAt:           s.clock.Now(),
		})
	})
	if err != nil {
		return domain.Settings{}, err
	}

	s.log.Info("organization settings updated",
		zap.String("org_id", orgID.String()),
		zap.Int("version", updated.Version),
	)
	return updated, nil
}

// load resolves settings from the versioned record, falling back to the
// organization's own columns and then to the defaults.
func (s *service) load(ctx context.Context, repo domain.Repository, orgID snowflake.ID) (domain.Settings, error) {
	org, err := repo.FindByID(ctx, orgID)
	if err != nil {
		return domain.Settings{}, err
	}
	if org == nil {
		return domain.Settings{}, domain.ErrNotFound
	}

	record, err := repo.FindSettings(ctx, orgID)
	if err != nil {
		return domain.Settings{}, err
	}
	if record != nil {
		return domain.Settings{
			StallThresholds:     stall.ResolveBytes(record.StallThresholds),
			AttachmentLimitFree: record.AttachmentLimitFree,
			AttachmentLimitPaid: record.AttachmentLimitPaid,
			Version:             record.Version,
		}, nil
	}

	policy := s.policy.Get()
	return domain.Settings{
		StallThresholds:     stall.Resolve(org.StallThresholdsJSON),
		AttachmentLimitFree: intOr(org.AttachmentLimitFree, policy.DefaultLimitFree),
		AttachmentLimitPaid: intOr(org.AttachmentLimitPaid, policy.DefaultLimitPaid),
	}, nil
}

func validateThresholds(in map[string]int) (map[casedomain.Status]int, error) {
	out := make(map[casedomain.Status]int, len(in))
	for key, days := range in {
		status, err := casedomain.ParseStatus(key)
		if err != nil || days < 0 || days > stall.MaxThresholdDays {
			return nil, domain.ErrInvalidStallThresholds
		}
		out[status] = days
	}
	return out, nil
}

func validLimit(v *int) bool {
	return v == nil || (*v >= domain.MinAttachmentLimit && *v <= domain.MaxAttachmentLimit)
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
