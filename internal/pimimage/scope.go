package pimimage

import (
	"context"
	"fmt"

	"github.com/catalogtools/pimasset/pkg/enums"
)

// MaxInParams caps the number of asset ids bound into one IN list.
const MaxInParams = 1000

// Relations of one parent are promoted only when the legacy row for that
// same parent was channel scoped.
const promoteScopeSQL = `UPDATE asset_relation SET scope = ?
WHERE scope = ? AND entity_name = ? AND NOT deleted AND asset_id IN (?)
AND EXISTS (
	SELECT 1 FROM pim_image pi
	JOIN asset a ON a.file_id = pi.image_id
	WHERE a.id = asset_relation.asset_id
	AND pi.%[1]s = asset_relation.entity_id
	AND pi.scope = ?
	AND NOT pi.deleted
)`

const insertRelationChannelSQL = `INSERT INTO asset_relation_channel (channel_id, asset_relation_id)
SELECT DISTINCT pic.channel_id, ar.id
FROM pim_image pi
JOIN pim_image_channel pic ON pic.pim_image_id = pi.id AND NOT pic.deleted
JOIN asset a ON a.file_id = pi.image_id AND NOT a.deleted
JOIN asset_relation ar ON ar.entity_name = ? AND ar.asset_id = a.id AND ar.entity_id = pi.%[1]s
	AND NOT ar.deleted AND ar.scope = ?
WHERE pi.%[1]s IS NOT NULL AND pi.%[1]s <> ''
AND NOT pi.deleted
AND pi.scope = ?
AND ar.asset_id IN (?)
AND NOT EXISTS (
	SELECT 1 FROM asset_relation_channel arc
	WHERE arc.channel_id = pic.channel_id AND arc.asset_relation_id = ar.id AND NOT arc.deleted
)`

const defaultScopeSQL = `UPDATE asset_relation SET scope = ? WHERE scope IS NULL OR scope = ''`

// resolveScopes promotes channel-touched relations, links them to their
// channels, and defaults every unresolved scope to Global.
func (r *run) resolveScopes(ctx context.Context) error {
	r.m.logg.Info(ctx, "updating scope")

	if len(r.touched) > 0 {
		for _, entity := range enums.EntityNames() {
			if err := r.promoteScope(ctx, entity); err != nil {
				return err
			}
		}
		for _, entity := range enums.EntityNames() {
			if err := r.linkChannels(ctx, entity); err != nil {
				return err
			}
		}
	}

	global := enums.ScopeGlobal.String()
	if err := r.m.exec.Exec(ctx, defaultScopeSQL, global).Error; err != nil {
		return fmt.Errorf("default relation scope: %w", err)
	}
	return nil
}

func (r *run) promoteScope(ctx context.Context, entity enums.EntityName) error {
	stmt := fmt.Sprintf(promoteScopeSQL, entity.LegacyColumn())
	for _, ids := range chunk(r.touched, MaxInParams) {
		err := r.m.exec.Exec(ctx, stmt,
			enums.ScopeChannel.String(),
			enums.ScopeGlobal.String(),
			entity.String(),
			ids,
			enums.ScopeChannel.String(),
		).Error
		if err != nil {
			return fmt.Errorf("promote %s relations to channel scope: %w", entity, err)
		}
	}
	return nil
}

func (r *run) linkChannels(ctx context.Context, entity enums.EntityName) error {
	stmt := fmt.Sprintf(insertRelationChannelSQL, entity.LegacyColumn())
	for _, ids := range chunk(r.touched, MaxInParams) {
		err := r.m.exec.Exec(ctx, stmt,
			entity.String(),
			enums.ScopeChannel.String(),
			enums.ScopeChannel.String(),
			ids,
		).Error
		if err != nil {
			return fmt.Errorf("link %s relations to channels: %w", entity, err)
		}
	}
	return nil
}

func chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
