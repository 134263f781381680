// Package settings manages key/value configuration, including the order
// cutoff time consumed by the orders service.
package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mealdesk/mealdesk/internal/app/domain/setting"
	"github.com/mealdesk/mealdesk/internal/app/metrics"
	"github.com/mealdesk/mealdesk/internal/app/storage"
	"github.com/mealdesk/mealdesk/internal/errors"
	"github.com/mealdesk/mealdesk/pkg/logger"
)

// DefaultCutoff is substituted when ORDER_CUTOFF_TIME is absent or malformed.
var DefaultCutoff = TimeOfDay{Hour: 12, Minute: 0}

// TimeOfDay is a wall-clock HH:MM value with no date attached.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String renders the value in the stored HH:MM form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On combines the time-of-day with a calendar date in the date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, date.Location())
}

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	var hour, minute int
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &hour, &minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// Service reads and writes settings. It never caches: the orders service
// depends on CutoffTime reflecting the stored value at call time.
type Service struct {
	store storage.SettingStore
	log   *logger.Logger
}

// New constructs a settings service.
func New(store storage.SettingStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("settings")
	}
	return &Service{store: store, log: log}
}

// GetString returns the raw value for a key.
func (s *Service) GetString(ctx context.Context, key string) (string, error) {
	entry, err := s.store.GetSetting(ctx, key)
	if err != nil {
		if err == storage.ErrNotFound {
			return "", errors.NotFound("setting %s not found", key)
		}
		return "", errors.Internal(err)
	}
	return entry.Value, nil
}

// Put upserts a setting. The cutoff key is validated so an admin cannot store
// a value the fallback would immediately override.
func (s *Service) Put(ctx context.Context, key, value string) (setting.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return setting.Setting{}, errors.BadInput("setting key is required")
	}
	if key == setting.KeyOrderCutoffTime {
		if _, err := ParseTimeOfDay(value); err != nil {
			return setting.Setting{}, errors.BadInput("cutoff time must be HH:MM")
		}
	}
	entry, err := s.store.PutSetting(ctx, setting.Setting{Key: key, Value: value})
	if err != nil {
		return setting.Setting{}, errors.Internal(err)
	}
	s.log.WithField("key", key).Info("setting updated")
	return entry, nil
}

// List returns all settings.
func (s *Service) List(ctx context.Context) ([]setting.Setting, error) {
	entries, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return entries, nil
}

// CutoffTime reads ORDER_CUTOFF_TIME fresh from the store. A missing or
// malformed value degrades to DefaultCutoff with a warning; it never fails
// the caller's request.
func (s *Service) CutoffTime(ctx context.Context) TimeOfDay {
	entry, err := s.store.GetSetting(ctx, setting.KeyOrderCutoffTime)
	if err != nil {
		if err != storage.ErrNotFound {
			s.log.WithError(err).Warn("cutoff setting read failed, using default")
		}
		metrics.RecordCutoffFallback()
		return DefaultCutoff
	}

	parsed, err := ParseTimeOfDay(entry.Value)
	if err != nil {
		s.log.WithField("value", entry.Value).Warn("cutoff setting malformed, using default")
		metrics.RecordCutoffFallback()
		return DefaultCutoff
	}
	return parsed
}
