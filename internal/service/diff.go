package service

import (
	"context"
	"fmt"

	"CourtSync/internal/interfaces"
	"CourtSync/internal/model"

	"github.com/sirupsen/logrus"
)

// DiffService owns the persisted snapshot and detects zero -> positive transitions against it
type DiffService struct {
	repo   interfaces.SlotRepository
	logger *logrus.Logger
}

func NewDiffService(repo interfaces.SlotRepository, logger *logrus.Logger) *DiffService {
	return &DiffService{repo: repo, logger: logger}
}

// GetPreviousState last persisted snapshot; a read failure yields an empty baseline
func (s *DiffService) GetPreviousState(ctx context.Context) []model.StoredSlot {
	slots, err := s.repo.ListSlots(ctx)
	if err != nil {
		s.logger.WithError(err).Error("read previous snapshot failed, continuing with empty baseline")
		return nil
	}
	s.logger.WithField("slots", len(slots)).Debug("previous snapshot loaded")
	return slots
}

// Compare see FindTransitions
func (s *DiffService) Compare(previous []model.StoredSlot, current []model.CanonicalSlot) []model.TransitionSlot {
	transitions := FindTransitions(previous, current)
	s.logger.WithFields(logrus.Fields{
		"previous":    len(previous),
		"current":     len(current),
		"transitions": len(transitions),
	}).Info("snapshot diff complete")
	return transitions
}

// UpdateState replaces the snapshot with current
func (s *DiffService) UpdateState(ctx context.Context, current []model.CanonicalSlot) error {
	if err := s.repo.ReplaceSlots(ctx, current); err != nil {
		return fmt.Errorf("persist snapshot of %d slots: %w", len(current), err)
	}
	return nil
}

// FindTransitions slots whose key was stored with 0 spaces and now has spaces > 0.
// Keys absent from previous never transition; each key is reported at most once.
func FindTransitions(previous []model.StoredSlot, current []model.CanonicalSlot) []model.TransitionSlot {
	before := make(map[model.SlotKey]int, len(previous))
	for _, p := range previous {
		before[p.Key()] = p.Spaces
	}

	var res []model.TransitionSlot
	emitted := make(map[model.SlotKey]struct{})
	for _, c := range current {
		k := c.Key()
		prev, ok := before[k]
		if !ok || prev != 0 || c.Spaces <= 0 {
			continue
		}
		if _, dup := emitted[k]; dup {
			continue
		}
		emitted[k] = struct{}{}
		res = append(res, model.TransitionSlot{
			CanonicalSlot:  c,
			PreviousSpaces: prev,
			CurrentSpaces:  c.Spaces,
		})
	}
	return res
}
