// Package testdb opens throwaway SQLite databases shaped like the host
// catalog schema. Test-only helper.
package testdb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/catalogtools/pimasset/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns an isolated in-memory SQLite connection limited to one
// pooled connection so transactions never contend with themselves.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

// OpenCatalog returns a database with the legacy and target tables migrated.
// Locales add name_<locale> columns to asset. Variants adds the product
// columns used by variant propagation.
func OpenCatalog(t *testing.T, locales []string, variants bool) *gorm.DB {
	t.Helper()
	conn := Open(t)
	tables := []any{
		&models.PimImage{},
		&models.PimImageChannel{},
		&models.Attachment{},
		&models.Asset{},
		&models.AssetRelation{},
		&models.AssetRelationChannel{},
		&models.Collection{},
		&models.Category{},
	}
	if err := conn.AutoMigrate(tables...); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	productDDL := "CREATE TABLE product (id varchar(24) PRIMARY KEY, image_id varchar(24), deleted numeric NOT NULL DEFAULT 0)"
	if variants {
		productDDL = "CREATE TABLE product (id varchar(24) PRIMARY KEY, image_id varchar(24), configurable_product_id varchar(24), data text, deleted numeric NOT NULL DEFAULT 0)"
	}
	if err := conn.Exec(productDDL).Error; err != nil {
		t.Fatalf("failed to create product table: %v", err)
	}
	for _, locale := range locales {
		column := "name_" + strings.ToLower(locale)
		if err := conn.Exec(fmt.Sprintf("ALTER TABLE asset ADD COLUMN %s varchar(255)", column)).Error; err != nil {
			t.Fatalf("failed to add %s: %v", column, err)
		}
	}
	return conn
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
