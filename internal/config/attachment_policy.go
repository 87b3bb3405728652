package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AttachmentPolicy bounds what may be uploaded as a case attachment.
type AttachmentPolicy struct {
	MaxBytes         int64    `mapstructure:"maxBytes"`
	AllowedMimeTypes []string `mapstructure:"allowedMimeTypes"`
	DefaultLimitFree int      `mapstructure:"defaultLimitFree"`
	DefaultLimitPaid int      `mapstructure:"defaultLimitPaid"`
}

func DefaultAttachmentPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		MaxBytes:         10 * 1024 * 1024,
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/webp"},
		DefaultLimitFree: 5,
		DefaultLimitPaid: 10,
	}
}

// Allows reports whether mimeType is on the whitelist.
func (p AttachmentPolicy) Allows(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	for _, allowed := range p.AllowedMimeTypes {
		if strings.EqualFold(allowed, mimeType) {
			return true
		}
	}
	return false
}

// AttachmentPolicyHolder serves the current policy; edits to the backing file
// are picked up without a restart.
type AttachmentPolicyHolder struct {
	current atomic.Value // holds AttachmentPolicy
}

// NewStaticAttachmentPolicy returns a holder that never reloads.
func NewStaticAttachmentPolicy(p AttachmentPolicy) *AttachmentPolicyHolder {
	h := &AttachmentPolicyHolder{}
	h.current.Store(p)
	return h
}

func NewAttachmentPolicyHolder(cfg Config, log *zap.Logger) (*AttachmentPolicyHolder, error) {
	log = log.Named("config.attachments")
	v := viper.New()

	if cfg.AttachmentPolicyFile != "" {
		v.SetConfigFile(cfg.AttachmentPolicyFile)
	} else {
		v.SetConfigName("attachments")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/repair-manager")
		v.AddConfigPath(".")
	}

	defaults := DefaultAttachmentPolicy()
	v.SetDefault("attachments.maxBytes", defaults.MaxBytes)
	v.SetDefault("attachments.allowedMimeTypes", defaults.AllowedMimeTypes)
	v.SetDefault("attachments.defaultLimitFree", defaults.DefaultLimitFree)
	v.SetDefault("attachments.defaultLimitPaid", defaults.DefaultLimitPaid)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
		log.Info("attachment policy file not found, using defaults")
	}

	policy, err := decodeAttachmentPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticAttachmentPolicy(policy)
	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeAttachmentPolicy(v)
			if err != nil {
				log.Warn("invalid attachment policy ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("attachment policy reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *AttachmentPolicyHolder) Get() AttachmentPolicy {
	return h.current.Load().(AttachmentPolicy)
}

func decodeAttachmentPolicy(v *viper.Viper) (AttachmentPolicy, error) {
	var p AttachmentPolicy
	if err := v.UnmarshalKey("attachments", &p); err != nil {
		return AttachmentPolicy{}, err
	}
	if err := validateAttachmentPolicy(p); err != nil {
		return AttachmentPolicy{}, err
	}
	return p, nil
}

func validateAttachmentPolicy(p AttachmentPolicy) error {
	if p.MaxBytes <= 0 {
		return errors.New("attachments.maxBytes must be positive")
	}
	if len(p.AllowedMimeTypes) == 0 {
		return errors.New("attachments.allowedMimeTypes cannot be empty")
	}
	if p.DefaultLimitFree < 1 || p.DefaultLimitPaid < 1 {
		return errors.New("attachments default limits must be at least 1")
	}
	return nil
}
