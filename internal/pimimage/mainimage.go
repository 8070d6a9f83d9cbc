package pimimage

import (
	"context"
	"fmt"

	"github.com/catalogtools/pimasset/pkg/enums"
)

const legacyMatchSQL = `FROM pim_image pi
	JOIN asset a ON a.file_id = pi.image_id
	WHERE a.id = asset_relation.asset_id
	AND pi.%[1]s = asset_relation.entity_id
	AND NOT pi.deleted`

// Duplicated legacy rows for one pairing resolve to the highest sort order.
const resyncSortOrderSQL = `UPDATE asset_relation SET sort_order = (
	SELECT MAX(pi.sort_order) ` + legacyMatchSQL + `
)
WHERE entity_name = ? AND NOT deleted
AND EXISTS (SELECT 1 ` + legacyMatchSQL + `)`

const globalRelationsSQL = `SELECT ar.id AS id, ar.entity_id AS entity_id, ar.sort_order AS sort_order, a.file_id AS file_id
FROM asset_relation ar
JOIN asset a ON a.id = ar.asset_id
WHERE ar.entity_name = ? AND ar.scope = ? AND NOT ar.deleted
ORDER BY ar.entity_id, ar.sort_order`

type globalRelation struct {
	ID        string `gorm:"column:id"`
	EntityID  string `gorm:"column:entity_id"`
	SortOrder int    `gorm:"column:sort_order"`
	FileID    string `gorm:"column:file_id"`
}

// electMainImages marks, per parent, the Global relation with the lowest
// sort order as Main and points the parent's image at its file.
func (r *run) electMainImages(ctx context.Context) error {
	r.m.logg.Info(ctx, "updating main image")
	for _, entity := range enums.EntityNames() {
		if err := r.electMainImage(ctx, entity); err != nil {
			return err
		}
	}
	return r.queue.Flush(ctx)
}

func (r *run) electMainImage(ctx context.Context, entity enums.EntityName) error {
	column := entity.LegacyColumn()
	resync := fmt.Sprintf(resyncSortOrderSQL, column)
	if err := r.m.exec.Exec(ctx, resync, entity.String()).Error; err != nil {
		return fmt.Errorf("resync %s sort order: %w", entity, err)
	}

	var relations []globalRelation
	err := r.m.exec.Raw(ctx, globalRelationsSQL, entity.String(), enums.ScopeGlobal.String()).Scan(&relations).Error
	if err != nil {
		return fmt.Errorf("load %s global relations: %w", entity, err)
	}

	mainRole := enums.RoleMain.JSON()
	clearRole := "UPDATE asset_relation SET role = NULL WHERE entity_name = ? AND entity_id = ? AND id <> ? AND role = ?"
	setRole := "UPDATE asset_relation SET role = ? WHERE id = ?"
	setImage := fmt.Sprintf("UPDATE %s SET image_id = ? WHERE id = ? AND NOT deleted", entity.Table())

	for _, winner := range firstPerEntity(relations) {
		if err := r.queue.Add(ctx, clearRole, entity.String(), winner.EntityID, winner.ID, mainRole); err != nil {
			return err
		}
		if err := r.queue.Add(ctx, setRole, mainRole, winner.ID); err != nil {
			return err
		}
		if err := r.queue.Add(ctx, setImage, winner.FileID, winner.EntityID); err != nil {
			return err
		}
	}
	return nil
}

// firstPerEntity keeps the first relation of each entity id from a list
// ordered by entity id then sort order.
func firstPerEntity(relations []globalRelation) []globalRelation {
	out := make([]globalRelation, 0, len(relations))
	last := ""
	for i, rel := range relations {
		if i > 0 && rel.EntityID == last {
			continue
		}
		last = rel.EntityID
		out = append(out, rel)
	}
	return out
}
