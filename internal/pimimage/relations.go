package pimimage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/catalogtools/pimasset/internal/legacy"
	"github.com/catalogtools/pimasset/pkg/db"
	"github.com/catalogtools/pimasset/pkg/enums"
)

const insertRelationSQL = `INSERT INTO asset_relation
	(id, name, entity_name, entity_id, asset_id, sort_order, created_by_id, assigned_user_id, scope, deleted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// RelationID derives the asset relation id from the legacy pairing: the hex
// MD5 of "<pimImageID>_<parentID>" from offset 15, the length of host ids.
func RelationID(pimImageID, parentID string) string {
	sum := md5.Sum([]byte(pimImageID + "_" + parentID))
	return hex.EncodeToString(sum[:])[15:]
}

func (r *run) writeRelation(ctx context.Context, row legacy.Row, entity enums.EntityName, parentID, assetID string, scope *string) error {
	err := r.m.exec.Exec(ctx, insertRelationSQL,
		RelationID(row.PimImageID, parentID),
		row.Name,
		entity.String(),
		parentID,
		assetID,
		row.SortOrder,
		r.m.systemUserID,
		r.assignee(row),
		scope,
		false,
	).Error
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("relation %s for pim image %s already exists: %w", RelationID(row.PimImageID, parentID), row.PimImageID, err)
	}
	if err != nil {
		return fmt.Errorf("insert relation for pim image %s: %w", row.PimImageID, err)
	}
	return nil
}

// assignee is the legacy row's user, or the system actor when it has none.
func (r *run) assignee(row legacy.Row) string {
	if row.AssignedUserID != nil && *row.AssignedUserID != "" {
		return *row.AssignedUserID
	}
	return r.m.systemUserID
}
