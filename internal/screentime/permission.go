package screentime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/screenpledge/internal/daywindow"
	"github.com/goodtune/screenpledge/internal/events"
	"github.com/goodtune/screenpledge/internal/storage"
	"github.com/rs/zerolog"
)

// probeWindow is how much recent history the permission probe reads.
const probeWindow = time.Minute

// Permission decides whether usage events may be read.
type Permission struct {
	settings storage.SettingsStore
	source   events.Source
	clock    daywindow.Clock
	logger   zerolog.Logger
}

// NewPermission creates a permission gate. A nil clock means the system clock.
func NewPermission(settings storage.SettingsStore, source events.Source, clock daywindow.Clock, logger zerolog.Logger) *Permission {
	if clock == nil {
		clock = daywindow.RealClock{}
	}
	return &Permission{
		settings: settings,
		source:   source,
		clock:    clock,
		logger:   logger.With().Str("component", "permission").Logger(),
	}
}

// Granted reports whether usage access has been recorded and the event source
// answers a probe for the last minute. A failing probe means not granted.
func (p *Permission) Granted(ctx context.Context) (bool, error) {
	value, err := p.settings.Get(ctx, storage.SettingUsageAccess)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read usage access setting: %w", err)
	}
	granted, err := strconv.ParseBool(value)
	if err != nil || !granted {
		return false, nil
	}

	now := p.clock.Now()
	if _, err := p.source.QueryEvents(ctx, now.Add(-probeWindow).UnixMilli(), now.UnixMilli()); err != nil {
		p.logger.Debug().Err(err).Msg("Usage event probe failed")
		return false, nil
	}
	return true, nil
}

// Request records that usage access has been granted.
func (p *Permission) Request(ctx context.Context) error {
	if err := p.settings.Set(ctx, storage.SettingUsageAccess, "true"); err != nil {
		return fmt.Errorf("failed to record usage access: %w", err)
	}
	p.logger.Info().Msg("Usage access granted")
	return nil
}

// Revoke records that usage access has been withdrawn.
func (p *Permission) Revoke(ctx context.Context) error {
	if err := p.settings.Set(ctx, storage.SettingUsageAccess, "false"); err != nil {
		return fmt.Errorf("failed to record usage access: %w", err)
	}
	p.logger.Info().Msg("Usage access revoked")
	return nil
}
