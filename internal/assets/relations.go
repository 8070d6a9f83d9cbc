package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/catalogtools/pimasset/pkg/db/models"
	"github.com/catalogtools/pimasset/pkg/enums"
	"gorm.io/gorm"
)

// Relation is an asset relation as seen from its parent, with the file it
// points at and the channels it is restricted to.
type Relation struct {
	ID             string
	Name           string
	EntityName     string
	EntityID       string
	AssetID        string
	FileID         string
	SortOrder      int
	Scope          *string
	Role           *string
	AssignedUserID *string
	CreatedByID    string
	Channels       []string
}

// IsMain reports whether the relation carries the Main role.
func (r Relation) IsMain() bool {
	return enums.RoleMain.In(r.Role)
}

type relationRow struct {
	ID             string  `gorm:"column:id"`
	Name           string  `gorm:"column:name"`
	EntityName     string  `gorm:"column:entity_name"`
	EntityID       string  `gorm:"column:entity_id"`
	AssetID        string  `gorm:"column:asset_id"`
	FileID         string  `gorm:"column:file_id"`
	SortOrder      int     `gorm:"column:sort_order"`
	Scope          *string `gorm:"column:scope"`
	Role           *string `gorm:"column:role"`
	AssignedUserID *string `gorm:"column:assigned_user_id"`
	CreatedByID    string  `gorm:"column:created_by_id"`
	ChannelID      *string `gorm:"column:channel_id"`
}

const relationsForEntitySQL = `SELECT ar.id AS id, ar.name AS name, ar.entity_name AS entity_name,
	ar.entity_id AS entity_id, ar.asset_id AS asset_id, COALESCE(a.file_id, '') AS file_id,
	ar.sort_order AS sort_order, ar.scope AS scope, ar.role AS role,
	ar.assigned_user_id AS assigned_user_id, ar.created_by_id AS created_by_id,
	arc.channel_id AS channel_id
FROM asset_relation ar
LEFT JOIN asset a ON a.id = ar.asset_id
LEFT JOIN asset_relation_channel arc ON arc.asset_relation_id = ar.id AND NOT arc.deleted
WHERE ar.entity_name = ? AND ar.entity_id = ? AND NOT ar.deleted
ORDER BY ar.sort_order, ar.id, arc.channel_id`

// RelationRepository reads migrated assets and relations back.
type RelationRepository struct {
	db *gorm.DB
}

// NewRelationRepository binds the repository to db.
func NewRelationRepository(db *gorm.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

// RelationsForEntity lists the live relations of one parent ordered by sort
// order, one entry per relation with its channels collected.
func (r *RelationRepository) RelationsForEntity(ctx context.Context, entity enums.EntityName, entityID string) ([]Relation, error) {
	if !entity.IsValid() {
		return nil, fmt.Errorf("unknown entity name %q", entity)
	}
	var rows []relationRow
	if err := r.db.WithContext(ctx).Raw(relationsForEntitySQL, entity.String(), entityID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s %s relations: %w", entity, entityID, err)
	}

	out := make([]Relation, 0, len(rows))
	for _, row := range rows {
		if n := len(out); n > 0 && out[n-1].ID == row.ID {
			if row.ChannelID != nil {
				out[n-1].Channels = append(out[n-1].Channels, *row.ChannelID)
			}
			continue
		}
		rel := Relation{
			ID:             row.ID,
			Name:           row.Name,
			EntityName:     row.EntityName,
			EntityID:       row.EntityID,
			AssetID:        row.AssetID,
			FileID:         row.FileID,
			SortOrder:      row.SortOrder,
			Scope:          row.Scope,
			Role:           row.Role,
			AssignedUserID: row.AssignedUserID,
			CreatedByID:    row.CreatedByID,
		}
		if row.ChannelID != nil {
			rel.Channels = []string{*row.ChannelID}
		}
		out = append(out, rel)
	}
	return out, nil
}

// FindByFileHash returns the asset whose migrated attachment has the given
// MD5, or nil when none exists.
func (r *RelationRepository) FindByFileHash(ctx context.Context, hash string) (*models.Asset, error) {
	if hash == "" {
		return nil, errors.New("file hash is required")
	}
	var asset models.Asset
	err := r.db.WithContext(ctx).
		Joins("JOIN attachment ON attachment.id = asset.file_id AND NOT attachment.deleted").
		Where("attachment.hash_md5 = ? AND attachment.related_type = ? AND NOT asset.deleted", hash, enums.AttachmentRelatedType).
		Order("asset.id").
		Take(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find asset by hash: %w", err)
	}
	return &asset, nil
}
