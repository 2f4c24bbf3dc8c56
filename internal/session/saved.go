package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/manash/designgen/pkg/models"
)

var ErrSavedNotFound = errors.New("saved design not found")

// SavedDesigns returns the saved list in insertion order. A missing key is an
// empty list; an unreadable value is deleted and treated as empty.
func (s *Store) SavedDesigns(ctx context.Context) ([]models.SavedDesign, error) {
	raw, err := s.Get(ctx, KeySavedDesigns)
	if errors.Is(err, ErrKeyNotFound) {
		return []models.SavedDesign{}, nil
	}
	if err != nil {
		return nil, err
	}

	var saved []models.SavedDesign
	if err := json.Unmarshal([]byte(raw), &saved); err != nil || !wellFormed(saved) {
		if err := s.Delete(ctx, KeySavedDesigns); err != nil {
			return nil, fmt.Errorf("failed to drop malformed saved designs: %w", err)
		}
		return []models.SavedDesign{}, nil
	}
	if saved == nil {
		saved = []models.SavedDesign{}
	}
	return saved, nil
}

// SaveDesign appends a copy of d to the saved list.
func (s *Store) SaveDesign(ctx context.Context, d *models.Design) (*models.SavedDesign, error) {
	if d == nil {
		return nil, ErrNoDesign
	}

	saved, err := s.SavedDesigns(ctx)
	if err != nil {
		return nil, err
	}

	record := models.SavedDesign{
		ID:        uuid.New().String(),
		Prompt:    d.Prompt,
		Spec:      d.Clone(),
		Timestamp: time.Now().UTC(),
	}
	saved = append(saved, record)

	if err := s.putSaved(ctx, saved); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetSaved finds a saved design by id or by 1-based list position.
func (s *Store) GetSaved(ctx context.Context, ref string) (*models.SavedDesign, error) {
	saved, err := s.SavedDesigns(ctx)
	if err != nil {
		return nil, err
	}
	i := findSaved(saved, ref)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSavedNotFound, ref)
	}
	return &saved[i], nil
}

func (s *Store) DeleteSaved(ctx context.Context, ref string) error {
	saved, err := s.SavedDesigns(ctx)
	if err != nil {
		return err
	}
	i := findSaved(saved, ref)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSavedNotFound, ref)
	}
	saved = append(saved[:i], saved[i+1:]...)
	return s.putSaved(ctx, saved)
}

func (s *Store) putSaved(ctx context.Context, saved []models.SavedDesign) error {
	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to encode saved designs: %w", err)
	}
	return s.Set(ctx, KeySavedDesigns, string(data))
}

func findSaved(saved []models.SavedDesign, ref string) int {
	for i := range saved {
		if saved[i].ID == ref {
			return i
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(saved) {
		return n - 1
	}
	return -1
}

func wellFormed(saved []models.SavedDesign) bool {
	for _, sd := range saved {
		if sd.ID == "" || sd.Spec == nil {
			return false
		}
	}
	return true
}

// Theme returns the stored theme, or the default if none is stored or the
// stored value is not a known theme.
func (s *Store) Theme(ctx context.Context) (models.Theme, error) {
	raw, err := s.Get(ctx, KeyTheme)
	if errors.Is(err, ErrKeyNotFound) {
		return models.DefaultTheme, nil
	}
	if err != nil {
		return "", err
	}
	theme, err := models.ParseTheme(raw)
	if err != nil {
		return models.DefaultTheme, nil
	}
	return theme, nil
}

func (s *Store) SetTheme(ctx context.Context, value string) (models.Theme, error) {
	theme, err := models.ParseTheme(value)
	if err != nil {
		return "", err
	}
	return theme, s.Set(ctx, KeyTheme, string(theme))
}

func (s *Store) HasVisited(ctx context.Context) (bool, error) {
	raw, err := s.Get(ctx, KeyHasVisited)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return raw == "true", nil
}

func (s *Store) MarkVisited(ctx context.Context) error {
	return s.Set(ctx, KeyHasVisited, "true")
}

func encodeDesign(d *models.Design) (string, error) {
	if d == nil {
		return "", ErrNoDesign
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode design: %w", err)
	}
	return string(data), nil
}

func decodeDesign(data string) (*models.Design, error) {
	var d models.Design
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return nil, fmt.Errorf("failed to decode design: %w", err)
	}
	return &d, nil
}
