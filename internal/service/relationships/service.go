package relationships

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkravets/roomcast-server/internal/store"
)

// Common errors for relationship operations.
var (
	ErrSelfTarget   = errors.New("cannot target yourself")
	ErrUserNotFound = errors.New("user not found")
	ErrNotBlocked   = errors.New("user is not blocked")
)

// Service provides favorite/block management business logic.
type Service struct {
	store store.Store
}

// New creates a new relationship service.
func New(st store.Store) *Service {
	return &Service{store: st}
}

// ToggleFavorite flips the favorite flag for targetID and reports the new
// state. Favoriting a blocked user unblocks them first.
func (s *Service) ToggleFavorite(ctx context.Context, userID, targetID string) (bool, error) {
	if err := s.checkTarget(ctx, userID, targetID); err != nil {
		return false, err
	}

	removed, err := s.store.DeleteRelationship(ctx, userID, targetID, store.RelationshipFavorite)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	if removed {
		return false, nil
	}

	if err := s.store.SetRelationship(ctx, userID, targetID, store.RelationshipFavorite); err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return true, nil
}

// Block records a block of targetID, dropping any favorite for the pair.
// Blocking an already-blocked user is a no-op.
func (s *Service) Block(ctx context.Context, userID, targetID string) error {
	if err := s.checkTarget(ctx, userID, targetID); err != nil {
		return err
	}

	if err := s.store.SetRelationship(ctx, userID, targetID, store.RelationshipBlocked); err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	return nil
}

// Unblock removes a block of targetID.
func (s *Service) Unblock(ctx context.Context, userID, targetID string) error {
	removed, err := s.store.DeleteRelationship(ctx, userID, targetID, store.RelationshipBlocked)
	if err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	if !removed {
		return ErrNotBlocked
	}
	return nil
}

// Sets returns the user's favorite and blocked ID lists.
func (s *Service) Sets(ctx context.Context, userID string) (favorites, blocked []string, err error) {
	rels, err := s.store.ListRelationships(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list relationships: %w", err)
	}
	favorites, blocked = store.RelationshipSets(rels)
	return favorites, blocked, nil
}

func (s *Service) checkTarget(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return ErrSelfTarget
	}
	if _, err := s.store.GetUserByID(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get target user: %w", err)
	}
	return nil
}
