package pimimage

import (
	"context"
	"fmt"
)

// VariantColumn marks schemas where products can have configurable parents.
const VariantColumn = "configurable_product_id"

const (
	legacyDataKey = `"pimImages"`
	assetDataKey  = `"assets"`
)

const renameDataKeySQL = `UPDATE product SET data = REPLACE(data, ?, ?) WHERE data LIKE ?`

const variantImagesSQL = `SELECT v.id AS id, p.image_id AS image_id
FROM product v
JOIN product p ON p.id = v.configurable_product_id AND NOT p.deleted
WHERE NOT v.deleted
AND p.image_id IS NOT NULL
AND (v.data IS NULL OR v.data NOT LIKE ?)`

type variantImage struct {
	ID      string `gorm:"column:id"`
	ImageID string `gorm:"column:image_id"`
}

// propagateVariants renames the serialized pim image key and copies each
// configurable product's image down to its variants. Skipped on schemas
// without variants.
func (r *run) propagateVariants(ctx context.Context) error {
	if !r.m.exec.HasColumn(ctx, "product", VariantColumn) {
		r.m.logg.Debug(ctx, "no variant column, skipping variant propagation")
		return nil
	}
	r.m.logg.Info(ctx, "propagating variant images")

	legacyPattern := "%" + legacyDataKey + "%"
	if err := r.m.exec.Exec(ctx, renameDataKeySQL, legacyDataKey, assetDataKey, legacyPattern).Error; err != nil {
		return fmt.Errorf("rename product data key: %w", err)
	}

	var variants []variantImage
	if err := r.m.exec.Raw(ctx, variantImagesSQL, legacyPattern).Scan(&variants).Error; err != nil {
		return fmt.Errorf("load variant images: %w", err)
	}
	for _, v := range variants {
		if err := r.queue.Add(ctx, "UPDATE product SET image_id = ? WHERE id = ?", v.ImageID, v.ID); err != nil {
			return err
		}
	}
	return r.queue.Flush(ctx)
}
