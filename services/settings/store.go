package settings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sahilchouksey/post-views-api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownGroup is returned when a settings group name cannot be resolved
var ErrUnknownGroup = errors.New("unknown settings group")

// OptionCache keeps hot option documents out of Postgres; the counting
// path reads the general group on every public hit
type OptionCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// optionCacheTTL bounds staleness for readers on other instances; writes
// on this instance drop the cached document immediately
const optionCacheTTL = time.Minute

func optionCacheKey(name string) string {
	return "pvc:option:" + name
}

// Store persists option documents in the generic options table, one JSON
// document per settings group
type Store struct {
	db    *gorm.DB
	cache OptionCache // nil disables caching
}

// NewStore creates a new option store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// NewCachedStore creates an option store with a read-through document
// cache in front of the options table
func NewCachedStore(db *gorm.DB, cache OptionCache) *Store {
	return &Store{db: db, cache: cache}
}

// Get loads an option document by name. A missing document yields an empty
// map, not an error.
func (s *Store) Get(ctx context.Context, name string) (map[string]interface{}, error) {
	if s.cache != nil {
		cached := map[string]interface{}{}
		if err := s.cache.GetJSON(ctx, optionCacheKey(name), &cached); err == nil {
			return cached, nil
		}
	}

	doc := make(map[string]interface{})

	var option model.Option
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&option).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else if err := json.Unmarshal(option.Value, &doc); err != nil {
		return nil, err
	}

	if s.cache != nil {
		// empty documents are cached too, so absent groups don't hit
		// Postgres on every read
		_ = s.cache.SetJSON(ctx, optionCacheKey(name), doc, optionCacheTTL)
	}

	return doc, nil
}

// Save upserts an option document. Last write wins; settings writes are
// rare admin actions.
func (s *Store) Save(ctx context.Context, name string, doc map[string]interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model.Option{
		Name:  name,
		Value: raw,
	}).Error
	if err != nil {
		return err
	}

	s.dropCached(ctx, name)
	return nil
}

// Delete removes an option document
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Option{}).Error
	if err != nil {
		return err
	}

	s.dropCached(ctx, name)
	return nil
}

func (s *Store) dropCached(ctx context.Context, name string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, optionCacheKey(name))
	}
}
