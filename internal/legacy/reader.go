// Package legacy loads the pim image rows that the migration retires.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/catalogtools/pimasset/pkg/db/models"
	"github.com/catalogtools/pimasset/pkg/enums"
	"gorm.io/gorm"
)

const rowsQuery = `SELECT
	a.id AS attachment_id,
	a.name AS name,
	a.storage AS storage,
	a.storage_file_path AS storage_file_path,
	a.tmp_path AS tmp_path,
	pi.id AS pim_image_id,
	pi.product_id AS product_id,
	pi.category_id AS category_id,
	pi.scope AS scope,
	pi.sort_order AS sort_order,
	pi.assigned_user_id AS assigned_user_id
FROM pim_image pi
JOIN attachment a ON a.id = pi.image_id AND NOT a.deleted
WHERE NOT pi.deleted`

const channelsQuery = `SELECT pim_image_id, channel_id FROM pim_image_channel WHERE NOT deleted`

// Row is one legacy pim image joined with its attachment.
type Row struct {
	AttachmentID    string  `gorm:"column:attachment_id"`
	Name            string  `gorm:"column:name"`
	Storage         *string `gorm:"column:storage"`
	StorageFilePath *string `gorm:"column:storage_file_path"`
	TmpPath         *string `gorm:"column:tmp_path"`
	PimImageID      string  `gorm:"column:pim_image_id"`
	ProductID       *string `gorm:"column:product_id"`
	CategoryID      *string `gorm:"column:category_id"`
	Scope           *string `gorm:"column:scope"`
	SortOrder       int     `gorm:"column:sort_order"`
	AssignedUserID  *string `gorm:"column:assigned_user_id"`
}

// Parent returns the entity the row links its attachment to: the product
// when one is set, otherwise the category.
func (r Row) Parent() (enums.EntityName, string) {
	if id := value(r.ProductID); id != "" {
		return enums.EntityProduct, id
	}
	return enums.EntityCategory, value(r.CategoryID)
}

// LegacyScope returns the raw scope value, empty when unset.
func (r Row) LegacyScope() string {
	return value(r.Scope)
}

// HasTmpPath reports whether the attachment already records a tmp path.
func (r Row) HasTmpPath() bool {
	return value(r.TmpPath) != ""
}

// Attachment projects the attachment columns of the row.
func (r Row) Attachment() models.Attachment {
	return models.Attachment{
		ID:              r.AttachmentID,
		Name:            r.Name,
		Storage:         r.Storage,
		StorageFilePath: r.StorageFilePath,
		TmpPath:         r.TmpPath,
	}
}

// ChannelMap maps a pim image id to one of its channels. Only membership is
// meaningful; when an image has several channels the last one read wins.
type ChannelMap map[string]string

// Has reports whether the pim image has any channel link.
func (c ChannelMap) Has(pimImageID string) bool {
	_, ok := c[pimImageID]
	return ok
}

// Reader loads legacy rows. It never writes.
type Reader struct {
	db *gorm.DB
}

// NewReader constructs a reader bound to the provided GORM DB.
func NewReader(db *gorm.DB) (*Reader, error) {
	if db == nil {
		return nil, errors.New("legacy reader requires a database")
	}
	return &Reader{db: db}, nil
}

// LoadRows returns every non-deleted pim image joined with its non-deleted
// attachment, in the order the store returns them.
func (r *Reader) LoadRows(ctx context.Context) ([]Row, error) {
	var rows []Row
	if err := r.db.WithContext(ctx).Raw(rowsQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load pim image rows: %w", err)
	}
	return rows, nil
}

// LoadChannels returns the pim image to channel map for non-deleted links.
func (r *Reader) LoadChannels(ctx context.Context) (ChannelMap, error) {
	var links []models.PimImageChannel
	if err := r.db.WithContext(ctx).Raw(channelsQuery).Scan(&links).Error; err != nil {
		return nil, fmt.Errorf("load pim image channels: %w", err)
	}
	out := make(ChannelMap, len(links))
	for _, link := range links {
		out[link.PimImageID] = link.ChannelID
	}
	return out, nil
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
