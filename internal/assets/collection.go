package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/catalogtools/pimasset/pkg/db/models"
	"gorm.io/gorm"
)

// CollectionStore finds and creates collections.
type CollectionStore interface {
	FindByCode(ctx context.Context, code string) (*models.Collection, error)
	Create(ctx context.Context, collection *models.Collection) error
}

// CollectionRepository is the GORM-backed CollectionStore.
type CollectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository constructs a collection repository bound to db.
func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// FindByCode returns the first live collection with code, or nil.
func (r *CollectionRepository) FindByCode(ctx context.Context, code string) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.WithContext(ctx).
		Where("code = ? AND deleted = ?", code, false).
		Take(&collection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// Create persists a collection.
func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	return r.db.WithContext(ctx).Create(collection).Error
}

// CollectionResolver returns the id of the migration's collection, creating
// it on first use and remembering it for the rest of the run.
type CollectionResolver struct {
	store CollectionStore
	code  string
	name  string
	newID func() string
	id    string
}

// NewCollectionResolver builds a resolver for the collection identified by code.
func NewCollectionResolver(store CollectionStore, code, name string) (*CollectionResolver, error) {
	if store == nil {
		return nil, errors.New("collection resolver requires a store")
	}
	if code == "" {
		return nil, errors.New("collection code is required")
	}
	if name == "" {
		name = code
	}
	return &CollectionResolver{store: store, code: code, name: name, newID: NewID}, nil
}

// ID returns the collection id.
func (r *CollectionResolver) ID(ctx context.Context) (string, error) {
	if r.id != "" {
		return r.id, nil
	}
	existing, err := r.store.FindByCode(ctx, r.code)
	if err != nil {
		return "", fmt.Errorf("find collection %s: %w", r.code, err)
	}
	if existing != nil {
		r.id = existing.ID
		return r.id, nil
	}
	collection := &models.Collection{
		ID:       r.newID(),
		Name:     r.name,
		Code:     r.code,
		IsActive: true,
	}
	if err := r.store.Create(ctx, collection); err != nil {
		return "", fmt.Errorf("create collection %s: %w", r.code, err)
	}
	r.id = collection.ID
	return r.id, nil
}
