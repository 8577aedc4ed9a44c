package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store resolves lookup keys against the lists table.
type Store struct {
	db    *gorm.DB
	cache *Cache
}

func NewStore(db *gorm.DB, cache *Cache) *Store {
	return &Store{db: db, cache: cache}
}

// Lookup returns the value of an active entry. Type and key are matched case-insensitively.
func (s *Store) Lookup(ctx context.Context, listType, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: empty %s key", ErrEntryNotFound, listType)
	}
	if val, ok := s.cache.Get(ctx, listType, key); ok {
		return val, nil
	}

	var entry Entry
	err := s.db.WithContext(ctx).
		Where("LOWER(list_type) = LOWER(?) AND LOWER(list_key) = LOWER(?) AND active = ?", listType, key, true).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s %q", ErrEntryNotFound, listType, key)
		}
		return "", fmt.Errorf("failed to query catalog: %w", err)
	}

	s.cache.Set(ctx, listType, key, entry.Value)
	return entry.Value, nil
}

// ResolveBracket returns the ceiling of a budget bracket in cents.
func (s *Store) ResolveBracket(ctx context.Context, key string) (int64, error) {
	val, err := s.Lookup(ctx, ListBudgetBrackets, key)
	if err != nil {
		return 0, err
	}
	cents, err := ParseDollars(val)
	if err != nil {
		return 0, fmt.Errorf("bracket %q has an invalid amount: %w", key, err)
	}
	return cents, nil
}

func (s *Store) ResolveApprovalType(ctx context.Context, key string) (string, error) {
	return s.Lookup(ctx, ListApprovalTypes, key)
}

func (s *Store) ResolveDocumentType(ctx context.Context, key string) (string, error) {
	return s.Lookup(ctx, ListDocumentTypes, key)
}

// List returns the active entries of a list ordered by key.
func (s *Store) List(ctx context.Context, listType string) ([]Entry, error) {
	var entries []Entry
	err := s.db.WithContext(ctx).
		Where("LOWER(list_type) = LOWER(?) AND active = ?", listType, true).
		Order("list_key").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog %s: %w", listType, err)
	}
	return entries, nil
}

// Upsert inserts entries or updates the value and active flag of existing (type, key) pairs.
func (s *Store) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "list_type"}, {Name: "list_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"list_value", "active", "updated_at"}),
	}).Create(&entries).Error
	if err != nil {
		return fmt.Errorf("failed to upsert catalog entries: %w", err)
	}

	for _, e := range entries {
		s.cache.Invalidate(ctx, e.ListType, e.Key)
	}
	log.Info().Int("entries", len(entries)).Msg("catalog entries upserted")
	return nil
}

// Count returns the number of entries across all lists.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Entry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count catalog entries: %w", err)
	}
	return n, nil
}
