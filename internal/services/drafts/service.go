package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/routewise/routewise/internal/common"
	"github.com/routewise/routewise/internal/interfaces"
	"github.com/routewise/routewise/internal/models"
)

// Service implements the expiring-draft utility over DraftStorage. The TTL
// and recent window come from config; storage holds whatever was stamped, so
// changing the TTL only affects drafts saved afterwards.
type Service struct {
	storage interfaces.DraftStorage
	events  interfaces.EventService
	logger  arbor.ILogger
	ttl     time.Duration
	recent  time.Duration
}

// NewService creates a new draft service
func NewService(storage interfaces.DraftStorage, eventService interfaces.EventService, config *common.DraftsConfig, logger arbor.ILogger) interfaces.DraftService {
	ttl := 24 * time.Hour
	recent := 30 * time.Minute
	if config != nil {
		if config.TTLHours > 0 {
			ttl = time.Duration(config.TTLHours) * time.Hour
		}
		if config.RecentMinutes > 0 {
			recent = time.Duration(config.RecentMinutes) * time.Minute
		}
	}

	return &Service{
		storage: storage,
		events:  eventService,
		logger:  logger,
		ttl:     ttl,
		recent:  recent,
	}
}

// SaveDraft stamps lastUpdated/expiresAt and persists the draft. A draft
// without an id gets one assigned.
func (s *Service) SaveDraft(ctx context.Context, key string, draft *models.Draft) (*models.Draft, error) {
	if key == "" {
		key = models.StorageKeyWizardDraft
	}

	now := time.Now()
	stamped := *draft
	if stamped.ID == "" {
		stamped.ID = common.NewDraftID()
	}
	stamped.LastUpdated = now.UnixMilli()
	stamped.ExpiresAt = now.Add(s.ttl).UnixMilli()

	if err := s.storage.SaveDraft(ctx, key, &stamped); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	s.logger.Debug().
		Str("key", key).
		Str("draft_id", stamped.ID).
		Int("step", stamped.CurrentStep).
		Msg("Draft saved")

	s.publish(ctx, interfaces.EventDraftSaved, map[string]interface{}{
		"key":      key,
		"draft_id": stamped.ID,
	})

	return &stamped, nil
}

// LoadDraft returns the stored draft. A draft found expired is deleted on
// the spot and reported as absent.
func (s *Service) LoadDraft(ctx context.Context, key string) (*models.Draft, error) {
	if key == "" {
		key = models.StorageKeyWizardDraft
	}

	draft, err := s.storage.GetDraft(ctx, key)
	if err != nil {
		return nil, err
	}

	if draft.IsExpired(time.Now()) {
		s.logger.Debug().Str("key", key).Str("draft_id", draft.ID).Msg("Draft expired, deleting")
		if err := s.storage.DeleteDraft(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete expired draft")
		}
		return nil, interfaces.ErrDraftNotFound
	}

	return draft, nil
}

// ClearDraft removes the draft unconditionally
func (s *Service) ClearDraft(ctx context.Context, key string) error {
	if key == "" {
		key = models.StorageKeyWizardDraft
	}

	if err := s.storage.DeleteDraft(ctx, key); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}

	s.publish(ctx, interfaces.EventDraftCleared, map[string]interface{}{"key": key})
	return nil
}

// Status describes the stored draft. Checking the status of an expired
// draft cleans it up, same as a load would.
func (s *Service) Status(ctx context.Context, key string) (*models.DraftStatus, error) {
	draft, err := s.LoadDraft(ctx, key)
	if errors.Is(err, interfaces.ErrDraftNotFound) {
		return &models.DraftStatus{Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &models.DraftStatus{
		Exists:      true,
		ID:          draft.ID,
		Age:         s.Age(draft, now),
		IsRecent:    s.IsRecent(draft, now),
		CurrentStep: draft.CurrentStep,
		ExpiresAt:   draft.ExpiresAt,
	}, nil
}

// Age renders a humanized age from the draft's lastUpdated stamp
func (s *Service) Age(draft *models.Draft, now time.Time) string {
	age := draft.AgeAt(now)

	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		minutes := int(age.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case age < 24*time.Hour:
		hours := int(age.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(age.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

// IsRecent reports whether the draft was updated within the recent window
func (s *Service) IsRecent(draft *models.Draft, now time.Time) bool {
	return draft.AgeAt(now) <= s.recent
}

// SweepExpired deletes every expired draft and returns how many went
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	keys, err := s.storage.ListDraftKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list drafts for sweep: %w", err)
	}

	now := time.Now()
	swept := 0
	for _, key := range keys {
		draft, err := s.storage.GetDraft(ctx, key)
		if errors.Is(err, interfaces.ErrDraftNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to read draft during sweep")
			continue
		}
		if !draft.IsExpired(now) {
			continue
		}
		if err := s.storage.DeleteDraft(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete expired draft during sweep")
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info().Int("swept", swept).Msg("Expired drafts removed")
		s.publish(ctx, interfaces.EventDraftsSwept, map[string]interface{}{"count": swept})
	}

	return swept, nil
}

// publish sends an event when an event service is wired
func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	event := interfaces.Event{Type: eventType, Payload: payload}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish draft event")
	}
}
