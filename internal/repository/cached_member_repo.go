package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/frontdesk/internal/domain"
)

const (
	memberByIDKeyPrefix = "member:id:"
	memberCacheTTL      = 10 * time.Minute
)

// CachedMemberRepository wraps MongoMemberRepository with Redis caching.
// Members are immutable apart from soft-delete, so only id lookups are cached.
type CachedMemberRepository struct {
	mongo *MongoMemberRepository
	cache *RedisCacheRepository
}

// NewCachedMemberRepository creates a new cached member repository
func NewCachedMemberRepository(mongo *MongoMemberRepository, cache *RedisCacheRepository) *CachedMemberRepository {
	return &CachedMemberRepository{
		mongo: mongo,
		cache: cache,
	}
}

// GetByID retrieves a member with caching
func (r *CachedMemberRepository) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	key := memberByIDKeyPrefix + id

	var member domain.Member
	if err := r.cache.Get(ctx, key, &member); err == nil {
		return &member, nil
	}

	result, err := r.mongo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Store in cache (ignore cache errors)
	_ = r.cache.Set(ctx, key, result, memberCacheTTL)

	return result, nil
}

// SoftDelete soft-deletes a member and drops its cache entry
func (r *CachedMemberRepository) SoftDelete(ctx context.Context, id string) error {
	if err := r.mongo.SoftDelete(ctx, id); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, memberByIDKeyPrefix+id)
	return nil
}

// === Pass-through methods (no caching) ===

func (r *CachedMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	return r.mongo.Create(ctx, member)
}

func (r *CachedMemberRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Member, error) {
	return r.mongo.GetByIDs(ctx, ids)
}

func (r *CachedMemberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	return r.mongo.List(ctx)
}

func (r *CachedMemberRepository) Count(ctx context.Context) (int64, error) {
	return r.mongo.Count(ctx)
}
