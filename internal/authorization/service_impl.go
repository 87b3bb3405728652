package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCase       = "case"
	ObjectAttachment = "attachment"
	ObjectExport     = "export"
	ObjectSettings   = "settings"
	ObjectAudit      = "audit"
)

const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
)

type Service interface {
	// Authorize returns ErrForbidden unless role may perform action on object.
	Authorize(ctx context.Context, role, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role, object, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	if object = strings.TrimSpace(object); object == "" {
		return ErrInvalidObject
	}

	allowed, err := s.enforcer.Enforce(roleSubject(role), object, strings.TrimSpace(action))
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleSubject(role string) string {
	return "role:" + role
}

// builtinPolicies is the role table installed on every start.
var builtinPolicies = [][]string{
	{roleSubject("member"), ObjectCase, ActionRead},
	{roleSubject("member"), ObjectCase, ActionWrite},
	{roleSubject("member"), ObjectAttachment, ActionWrite},
	{roleSubject("member"), ObjectExport, ActionRead},

	{roleSubject("admin"), ObjectCase, ActionDelete},
	{roleSubject("admin"), ObjectSettings, ActionRead},
	{roleSubject("admin"), ObjectAudit, ActionRead},

	{roleSubject("owner"), ObjectSettings, ActionWrite},
}

// Owners inherit admin rights and admins inherit member rights.
var builtinInheritance = [][]string{
	{roleSubject("admin"), roleSubject("member")},
	{roleSubject("owner"), roleSubject("admin")},
}

// seedPolicies installs builtinPolicies and builtinInheritance, skipping rules
// already stored.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, policy := range builtinPolicies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	for _, rule := range builtinInheritance {
		has, err := enforcer.HasGroupingPolicy(rule)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddGroupingPolicy(rule); err != nil {
			return err
		}
	}
	return nil
}
