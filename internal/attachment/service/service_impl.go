package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/macfixkou/repair-manager/internal/attachment/domain"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/config"
	"github.com/macfixkou/repair-manager/internal/observability/metrics"
	orgdomain "github.com/macfixkou/repair-manager/internal/organization/domain"
	"github.com/macfixkou/repair-manager/internal/orgcontext"
	"github.com/macfixkou/repair-manager/internal/ratelimit"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	CaseRepo casedomain.Repository
	OrgSvc   orgdomain.Service
	Store    domain.ObjectStore
	Policy   *config.AttachmentPolicyHolder
	Limiter  *ratelimit.Limiter `optional:"true"`
	Metrics  *metrics.Metrics   `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	caseRepo casedomain.Repository
	orgSvc   orgdomain.Service
	store    domain.ObjectStore
	policy   *config.AttachmentPolicyHolder
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("attachment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		caseRepo: p.CaseRepo,
		orgSvc:   p.OrgSvc,
		store:    p.Store,
		policy:   p.Policy,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}
}

// Upload stores a photo for a case. The count check and the insert are not
// atomic, so concurrent uploads may briefly exceed the limit.
func (s *Service) Upload(ctx context.Context, caseID string, file domain.UploadRequest) (domain.Attachment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Attachment{}, domain.ErrInvalidOrganization
	}
	if decision := s.limiter.AllowUpload(ctx, orgID.String()); !decision.Allowed {
		return domain.Attachment{}, domain.ErrRateLimited
	}

	caseID = strings.TrimSpace(caseID)
	repairCase, err := s.caseRepo.FindByID(ctx, s.db, orgID, caseID)
	if err != nil {
		return domain.Attachment{}, err
	}
	if repairCase == nil {
		return domain.Attachment{}, casedomain.ErrNotFound
	}

	settings, err := s.orgSvc.GetSettings(ctx, orgID)
	if err != nil {
		return domain.Attachment{}, err
	}
	count, err := s.repo.CountByCase(ctx, s.db, orgID, caseID)
	if err != nil {
		return domain.Attachment{}, err
	}
	if count >= int64(settings.AttachmentLimitPaid) {
		return domain.Attachment{}, domain.ErrLimitReached
	}

	body, err := s.readFile(file)
	if err != nil {
		return domain.Attachment{}, err
	}

	mimeType := strings.ToLower(strings.TrimSpace(file.MimeType))
	key := fmt.Sprintf("%s/%s-%d-%s", orgID, caseID, s.clock.Now().UnixMilli(), SafeName(file.FileName))
	if err := s.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), mimeType); err != nil {
		s.log.Error("attachment upload failed", zap.String("case_id", caseID), zap.Error(err))
		return domain.Attachment{}, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	record := domain.Attachment{
		ID:        s.genID.Generate(),
		CaseID:    caseID,
		OrgID:     orgID,
		Type:      domain.TypePhoto,
		FileName:  file.FileName,
		FilePath:  s.store.PublicURL(key),
		ObjectKey: key,
		MimeType:  mimeType,
		Size:      int64(len(body)),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		s.removeObject(ctx, key)
		return domain.Attachment{}, err
	}

	s.metrics.RecordAttachmentUploaded(ctx, mimeType)
	return record, nil
}

// Delete removes the record, then the stored object. A failed object removal
// leaves an orphan in the bucket and is only logged.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOrganization
	}

	record, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return err
	}
	if record == nil {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, s.db, orgID, id); err != nil {
		return err
	}

	key := record.ObjectKey
	if key == "" {
		key = s.store.KeyFromURL(record.FilePath)
	}
	if key != "" {
		s.removeObject(ctx, key)
	}
	return nil
}

func (s *Service) readFile(file domain.UploadRequest) ([]byte, error) {
	if file.Body == nil || strings.TrimSpace(file.FileName) == "" {
		return nil, domain.ErrMissingFile
	}
	policy := s.policy.Get()
	if !policy.Allows(file.MimeType) {
		return nil, domain.ErrMimeType
	}
	if file.Size > policy.MaxBytes {
		return nil, domain.ErrTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(file.Body, policy.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > policy.MaxBytes {
		return nil, domain.ErrTooLarge
	}
	if len(body) == 0 {
		return nil, domain.ErrMissingFile
	}
	return body, nil
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if err := s.store.Remove(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn("attachment object not removed", zap.String("key", key), zap.Error(err))
	}
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SafeName replaces every character outside [a-zA-Z0-9._-] with an underscore.
func SafeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// IsClientError reports whether err was caused by the uploaded file itself.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrMissingFile) ||
		errors.Is(err, domain.ErrMimeType) ||
		errors.Is(err, domain.ErrTooLarge) ||
		errors.Is(err, domain.ErrLimitReached)
}
