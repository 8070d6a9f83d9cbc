package pimimage

import (
	"bytes"
	"context"
	stdErrors "errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/catalogtools/pimasset/internal/assets"
	"github.com/catalogtools/pimasset/internal/legacy"
	"github.com/catalogtools/pimasset/internal/storage"
	"github.com/catalogtools/pimasset/internal/testdb"
	"github.com/catalogtools/pimasset/pkg/config"
	"github.com/catalogtools/pimasset/pkg/db"
	"github.com/catalogtools/pimasset/pkg/db/models"
	"github.com/catalogtools/pimasset/pkg/enums"
	"github.com/catalogtools/pimasset/pkg/errors"
	"github.com/catalogtools/pimasset/pkg/logger"
	"github.com/catalogtools/pimasset/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	t         *testing.T
	conn      *gorm.DB
	client    *db.Client
	uploadDir string
	logs      *bytes.Buffer
	registry  *prometheus.Registry
	params    Params
	readBack  *assets.RelationRepository
}

type fixtureOptions struct {
	locales  []string
	variants bool
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	conn := testdb.OpenCatalog(t, opts.locales, opts.variants)
	client := db.NewFromGorm(conn)
	uploadDir := t.TempDir()
	logs := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "pimimage-test", Output: logs})

	reader, err := legacy.NewReader(conn)
	require.NoError(t, err)
	creator, err := assets.NewGormCreator(client)
	require.NoError(t, err)
	collections, err := assets.NewCollectionResolver(assets.NewCollectionRepository(conn), "pimcollection", "PimCollection")
	require.NoError(t, err)
	resolver, err := storage.NewLocalResolver(uploadDir)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	return &fixture{
		t:         t,
		conn:      conn,
		client:    client,
		uploadDir: uploadDir,
		logs:      logs,
		registry:  registry,
		readBack:  assets.NewRelationRepository(conn),
		params: Params{
			Logger:      logg,
			Reader:      reader,
			Executor:    client,
			Creator:     creator,
			Collections: collections,
			Resolver:    resolver,
			Hasher:      storage.MD5Hasher{},
			Locales:     config.LocaleConfig{MultilangActive: len(opts.locales) > 0, InputLanguageList: opts.locales},
			Metrics:     metrics.NewMigrationMetrics(registry),
		},
	}
}

// attachment inserts an attachment row; withFile controls whether its file
// exists under the upload directory.
func (f *fixture) attachment(id, name string, withFile bool) {
	f.t.Helper()
	dir := "2024/" + id
	if withFile {
		path := filepath.Join(f.uploadDir, dir, name)
		require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(f.t, os.WriteFile(path, []byte("content of "+id), 0o644))
	}
	require.NoError(f.t, f.conn.Create(&models.Attachment{
		ID:              id,
		Name:            name,
		Storage:         testdb.Ptr(storage.StorageUploadDir),
		StorageFilePath: testdb.Ptr(dir),
	}).Error)
}

func (f *fixture) productImage(id, attachmentID, productID, scope string, sort int) {
	f.t.Helper()
	f.product(productID)
	require.NoError(f.t, f.conn.Create(&models.PimImage{
		ID: id, ImageID: attachmentID, ProductID: testdb.Ptr(productID), Scope: optional(scope), SortOrder: sort,
	}).Error)
}

func (f *fixture) categoryImage(id, attachmentID, categoryID, scope string, sort int) {
	f.t.Helper()
	var count int64
	require.NoError(f.t, f.conn.Model(&models.Category{}).Where("id = ?", categoryID).Count(&count).Error)
	if count == 0 {
		require.NoError(f.t, f.conn.Create(&models.Category{ID: categoryID}).Error)
	}
	require.NoError(f.t, f.conn.Create(&models.PimImage{
		ID: id, ImageID: attachmentID, CategoryID: testdb.Ptr(categoryID), Scope: optional(scope), SortOrder: sort,
	}).Error)
}

func (f *fixture) product(id string) {
	f.t.Helper()
	require.NoError(f.t, f.conn.Exec("INSERT INTO product (id, deleted) SELECT ?, 0 WHERE NOT EXISTS (SELECT 1 FROM product WHERE id = ?)", id, id).Error)
}

func (f *fixture) channel(pimImageID, channelID string) {
	f.t.Helper()
	require.NoError(f.t, f.conn.Create(&models.PimImageChannel{PimImageID: pimImageID, ChannelID: channelID}).Error)
}

func (f *fixture) migrator() *Migrator {
	f.t.Helper()
	m, err := NewMigrator(f.params)
	require.NoError(f.t, err)
	return m
}

func (f *fixture) run() {
	f.t.Helper()
	require.NoError(f.t, f.migrator().Run(context.Background()))
}

func (f *fixture) assets() []models.Asset {
	f.t.Helper()
	var out []models.Asset
	require.NoError(f.t, f.conn.Order("file_id").Find(&out).Error)
	return out
}

func (f *fixture) relations(entity enums.EntityName, entityID string) []assets.Relation {
	f.t.Helper()
	out, err := f.readBack.RelationsForEntity(context.Background(), entity, entityID)
	require.NoError(f.t, err)
	return out
}

func (f *fixture) productImageID(id string) *string {
	f.t.Helper()
	var p models.Product
	require.NoError(f.t, f.conn.Take(&p, "id = ?", id).Error)
	return p.ImageID
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func TestRunScenarioSharedFileAcrossProducts(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-1", "front.jpg", true)
	f.productImage("pi-1", "att-1", "p-1", "Global", 1)
	f.productImage("pi-2", "att-1", "p-2", "Global", 2)

	f.run()

	created := f.assets()
	require.Len(t, created, 1)
	asset := created[0]
	assert.Equal(t, "att-1", asset.FileID)
	assert.Equal(t, "Gallery Image", asset.Type)
	assert.Equal(t, "front", asset.Name)
	assert.True(t, asset.Private)

	p1 := f.relations(enums.EntityProduct, "p-1")
	p2 := f.relations(enums.EntityProduct, "p-2")
	require.Len(t, p1, 1)
	require.Len(t, p2, 1)
	for _, rel := range []assets.Relation{p1[0], p2[0]} {
		assert.Equal(t, asset.ID, rel.AssetID)
		assert.Equal(t, "Product", rel.EntityName)
		require.NotNil(t, rel.Scope)
		assert.Equal(t, "Global", *rel.Scope)
		assert.True(t, rel.IsMain(), "relation %s should be main", rel.ID)
	}
	assert.Equal(t, 1, p1[0].SortOrder)
	assert.Equal(t, 2, p2[0].SortOrder)

	assert.Equal(t, "att-1", *f.productImageID("p-1"))
	assert.Equal(t, "att-1", *f.productImageID("p-2"))

	var att models.Attachment
	require.NoError(t, f.conn.Take(&att, "id = ?", "att-1").Error)
	require.NotNil(t, att.HashMD5)
	assert.Len(t, *att.HashMD5, 32)
	byHash, err := f.readBack.FindByFileHash(context.Background(), *att.HashMD5)
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, asset.ID, byHash.ID)
	assert.Equal(t, "Asset", *att.RelatedType)
	assert.Equal(t, "Asset", *att.ParentType)
	require.NotNil(t, att.TmpPath)
	assert.Equal(t, filepath.Join(f.uploadDir, "2024/att-1", "front.jpg"), *att.TmpPath)

	var collections []models.Collection
	require.NoError(t, f.conn.Find(&collections).Error)
	require.Len(t, collections, 1)
	assert.Equal(t, collections[0].ID, asset.CollectionID)
	assert.Equal(t, "pimcollection", collections[0].Code)

	assert.False(t, f.conn.Migrator().HasTable("pim_image"))
	assert.False(t, f.conn.Migrator().HasTable("pim_image_channel"))
	assert.Contains(t, f.logs.String(), "creating assets")
	assert.Contains(t, f.logs.String(), "created 1 of 2 assets")
	assert.Contains(t, f.logs.String(), "migration complete")
}

func TestRunScenarioChannelScopedCategory(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-2", "side.png", true)
	f.categoryImage("pi-3", "att-2", "c-1", "Channel", 1)
	f.channel("pi-3", "ch-1")

	f.run()

	require.Len(t, f.assets(), 1)
	rels := f.relations(enums.EntityCategory, "c-1")
	require.Len(t, rels, 1)
	assert.Equal(t, "Category", rels[0].EntityName)
	assert.Equal(t, "Channel", *rels[0].Scope)
	assert.False(t, rels[0].IsMain())
	assert.Equal(t, []string{"ch-1"}, rels[0].Channels)

	var category models.Category
	require.NoError(t, f.conn.Take(&category, "id = ?", "c-1").Error)
	assert.Nil(t, category.ImageID)
}

func TestRunScenarioMissingFileIsSilent(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-3", "gone.jpg", false)
	f.productImage("pi-4", "att-3", "p-3", "Global", 1)

	f.run()

	assert.Empty(t, f.assets())
	assert.Empty(t, f.relations(enums.EntityProduct, "p-3"))
	assert.Nil(t, f.productImageID("p-3"))
	assert.NotContains(t, f.logs.String(), `"level":"error"`)
	assert.Contains(t, f.logs.String(), "migration complete")
}

func TestRunDedupCreatesOneAssetPerAttachment(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-1", "shared.jpg", true)
	f.productImage("pi-1", "att-1", "p-1", "", 1)
	f.productImage("pi-2", "att-1", "p-2", "", 1)
	f.categoryImage("pi-3", "att-1", "c-1", "", 1)

	f.run()

	created := f.assets()
	require.Len(t, created, 1)

	var rels []assets.Relation
	rels = append(rels, f.relations(enums.EntityProduct, "p-1")...)
	rels = append(rels, f.relations(enums.EntityProduct, "p-2")...)
	rels = append(rels, f.relations(enums.EntityCategory, "c-1")...)
	require.Len(t, rels, 3)

	deterministic := 0
	expected := map[string]bool{
		RelationID("pi-1", "p-1"): true,
		RelationID("pi-2", "p-2"): true,
		RelationID("pi-3", "c-1"): true,
	}
	for _, rel := range rels {
		assert.Equal(t, created[0].ID, rel.AssetID)
		assert.Equal(t, "Global", *rel.Scope)
		if expected[rel.ID] {
			deterministic++
		}
	}
	assert.Equal(t, 2, deterministic, "every parent but the seed goes through the relation writer")
}

func TestRunChannelPromotionIsPerParent(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-1", "shared.jpg", true)
	f.productImage("pi-1", "att-1", "p-1", "Channel", 1)
	f.channel("pi-1", "ch-1")
	f.productImage("pi-2", "att-1", "p-2", "Global", 1)

	f.run()

	p1 := f.relations(enums.EntityProduct, "p-1")
	p2 := f.relations(enums.EntityProduct, "p-2")
	require.Len(t, p1, 1)
	require.Len(t, p2, 1)
	assert.Equal(t, "Channel", *p1[0].Scope)
	assert.Equal(t, "Global", *p2[0].Scope)
	assert.True(t, p2[0].IsMain())
	assert.False(t, p1[0].IsMain())

	assert.Equal(t, []string{"ch-1"}, p1[0].Channels)
	assert.Empty(t, p2[0].Channels)

	assert.Nil(t, f.productImageID("p-1"))
	assert.Equal(t, "att-1", *f.productImageID("p-2"))
}

func TestRunChannelLinksAreNotDuplicated(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-1", "a.jpg", true)
	f.attachment("att-2", "b.jpg", true)
	f.productImage("pi-1", "att-1", "p-1", "Channel", 1)
	f.productImage("pi-2", "att-2", "p-1", "Channel", 2)
	f.channel("pi-1", "ch-1")
	f.channel("pi-2", "ch-1")
	f.channel("pi-2", "ch-2")

	f.run()

	rels := f.relations(enums.EntityProduct, "p-1")
	require.Len(t, rels, 2)
	assert.Equal(t, []string{"ch-1"}, rels[0].Channels)
	assert.Equal(t, []string{"ch-1", "ch-2"}, rels[1].Channels)

	var links int64
	require.NoError(t, f.conn.Model(&models.AssetRelationChannel{}).Count(&links).Error)
	assert.Equal(t, int64(3), links)
}

func TestRunElectsLowestSortOrderAsMain(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-a", "a.jpg", true)
	f.attachment("att-b", "b.jpg", true)
	f.attachment("att-c", "c.jpg", true)
	f.attachment("att-d", "d.jpg", true)
	f.productImage("pi-a", "att-a", "p-1", "Global", 5)
	f.productImage("pi-b", "att-b", "p-1", "Global", 2)
	f.productImage("pi-c", "att-c", "p-1", "", 9)
	f.productImage("pi-d", "att-d", "p-1", "Channel", 1)
	f.channel("pi-d", "ch-1")

	f.run()

	rels := f.relations(enums.EntityProduct, "p-1")
	require.Len(t, rels, 4)
	mains := 0
	for _, rel := range rels {
		if rel.IsMain() {
			mains++
			assert.Equal(t, 2, rel.SortOrder)
			assert.Equal(t, "Global", *rel.Scope)
		}
	}
	assert.Equal(t, 1, mains)
	assert.Equal(t, "att-b", *f.productImageID("p-1"))
}

func TestRunTiedSortOrderStillHasOneMain(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-a", "a.jpg", true)
	f.attachment("att-b", "b.jpg", true)
	f.categoryImage("pi-a", "att-a", "c-1", "Global", 1)
	f.categoryImage("pi-b", "att-b", "c-1", "Global", 1)

	f.run()

	rels := f.relations(enums.EntityCategory, "c-1")
	require.Len(t, rels, 2)
	mains := 0
	var mainAsset string
	for _, rel := range rels {
		if rel.IsMain() {
			mains++
			mainAsset = rel.AssetID
		}
	}
	require.Equal(t, 1, mains)

	var category models.Category
	require.NoError(t, f.conn.Take(&category, "id = ?", "c-1").Error)
	var asset models.Asset
	require.NoError(t, f.conn.Take(&asset, "id = ?", mainAsset).Error)
	require.NotNil(t, category.ImageID)
	assert.Equal(t, asset.FileID, *category.ImageID)
}

// sortedReader hands rows to the engine ordered by pim image id so the
// seeding parent is known up front.
type sortedReader struct {
	inner RowReader
}

func (r sortedReader) LoadRows(ctx context.Context) ([]legacy.Row, error) {
	rows, err := r.inner.LoadRows(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PimImageID < rows[j].PimImageID })
	return rows, nil
}

func (r sortedReader) LoadChannels(ctx context.Context) (legacy.ChannelMap, error) {
	return r.inner.LoadChannels(ctx)
}

func (f *fixture) assign(pimImageID, userID string) {
	f.t.Helper()
	require.NoError(f.t, f.conn.Model(&models.PimImage{}).Where("id = ?", pimImageID).Update("assigned_user_id", userID).Error)
}

func TestRunRelationsCarryAssigneeAndCreator(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-1", "a.jpg", true)
	f.productImage("pi-1", "att-1", "p-1", "Global", 1)
	f.productImage("pi-2", "att-1", "p-2", "Global", 2)
	f.productImage("pi-3", "att-1", "p-3", "Global", 3)
	f.assign("pi-2", "u-9")
	f.params.Reader = sortedReader{inner: f.params.Reader}

	f.run()

	seed := f.relations(enums.EntityProduct, "p-1")
	require.Len(t, seed, 1)
	assert.NotEqual(t, RelationID("pi-1", "p-1"), seed[0].ID)

	assigned := f.relations(enums.EntityProduct, "p-2")
	require.Len(t, assigned, 1)
	assert.Equal(t, RelationID("pi-2", "p-2"), assigned[0].ID)
	require.NotNil(t, assigned[0].AssignedUserID)
	assert.Equal(t, "u-9", *assigned[0].AssignedUserID)

	unassigned := f.relations(enums.EntityProduct, "p-3")
	require.Len(t, unassigned, 1)
	assert.Equal(t, RelationID("pi-3", "p-3"), unassigned[0].ID)

	for _, rel := range []assets.Relation{seed[0], unassigned[0]} {
		require.NotNil(t, rel.AssignedUserID, "relation %s", rel.ID)
		assert.Equal(t, "system", *rel.AssignedUserID, "relation %s", rel.ID)
	}
	for _, rel := range []assets.Relation{seed[0], assigned[0], unassigned[0]} {
		assert.Equal(t, "system", rel.CreatedByID, "relation %s", rel.ID)
		assert.Equal(t, "a.jpg", rel.Name, "relation %s", rel.ID)
	}
}

func TestRunReusedChannelRowWithoutLinksKeepsChannelScope(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-1", "a.jpg", true)
	f.productImage("pi-1", "att-1", "p-1", "Global", 1)
	f.productImage("pi-2", "att-1", "p-2", "Channel", 1)
	f.params.Reader = sortedReader{inner: f.params.Reader}

	f.run()

	p1 := f.relations(enums.EntityProduct, "p-1")
	require.Len(t, p1, 1)
	assert.Equal(t, "Global", *p1[0].Scope)
	assert.True(t, p1[0].IsMain())

	p2 := f.relations(enums.EntityProduct, "p-2")
	require.Len(t, p2, 1)
	require.NotNil(t, p2[0].Scope)
	assert.Equal(t, "Channel", *p2[0].Scope)
	assert.Empty(t, p2[0].Channels)
	assert.False(t, p2[0].IsMain())
	assert.Nil(t, f.productImageID("p-2"))
}

type failingCreator struct {
	inner  assets.Creator
	failOn map[string]bool
	calls  int
}

func (c *failingCreator) CreateAsset(ctx context.Context, in assets.NewAsset) (string, error) {
	c.calls++
	if c.failOn[in.FileID] {
		return "", stdErrors.New("entity service rejected asset")
	}
	return c.inner.CreateAsset(ctx, in)
}

func TestRunLogsAndSkipsCreationFailures(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-bad", "bad.jpg", true)
	f.attachment("att-ok", "ok.jpg", true)
	f.productImage("pi-1", "att-bad", "p-1", "Global", 1)
	f.productImage("pi-2", "att-ok", "p-2", "Global", 1)
	f.params.Creator = &failingCreator{inner: f.params.Creator, failOn: map[string]bool{"att-bad": true}}

	f.run()

	created := f.assets()
	require.Len(t, created, 1)
	assert.Equal(t, "att-ok", created[0].FileID)
	assert.Empty(t, f.relations(enums.EntityProduct, "p-1"))

	logs := f.logs.String()
	assert.Contains(t, logs, "error migrating pim image to asset")
	assert.Contains(t, logs, `"attachment_id":"att-bad"`)
	assert.Contains(t, logs, "entity service rejected asset")
	assert.Contains(t, logs, `"source":"engine.go:`)
}

func TestRunWritesLocalizedNames(t *testing.T) {
	f := newFixture(t, fixtureOptions{locales: []string{"de_DE", "en_US"}})
	f.attachment("att-1", "front.side.jpg", true)
	f.productImage("pi-1", "att-1", "p-1", "Global", 1)

	f.run()

	var row struct {
		NameDeDe string `gorm:"column:name_de_de"`
		NameEnUs string `gorm:"column:name_en_us"`
	}
	require.NoError(t, f.conn.Raw("SELECT name_de_de, name_en_us FROM asset").Scan(&row).Error)
	assert.Equal(t, "front", row.NameDeDe)
	assert.Equal(t, "front", row.NameEnUs)
}

func TestRunPropagatesVariantImages(t *testing.T) {
	f := newFixture(t, fixtureOptions{variants: true})
	f.attachment("att-1", "parent.jpg", true)
	f.productImage("pi-1", "att-1", "p-parent", "Global", 1)
	require.NoError(t, f.conn.Exec(
		`INSERT INTO product (id, configurable_product_id, data, deleted) VALUES (?, ?, ?, 0), (?, ?, ?, 0)`,
		"v-1", "p-parent", `{"pimImages":["x"]}`,
		"v-2", "p-parent", nil,
	).Error)

	f.run()

	var variant models.Product
	require.NoError(t, f.conn.Take(&variant, "id = ?", "v-1").Error)
	require.NotNil(t, variant.Data)
	assert.Equal(t, `{"assets":["x"]}`, *variant.Data)
	require.NotNil(t, variant.ImageID)
	assert.Equal(t, "att-1", *variant.ImageID)
	assert.Equal(t, "att-1", *f.productImageID("v-2"))
	assert.Contains(t, f.logs.String(), "propagating variant images")
}

func TestRunSkipsVariantsWithoutColumn(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-1", "a.jpg", true)
	f.productImage("pi-1", "att-1", "p-1", "Global", 1)

	f.run()

	assert.NotContains(t, f.logs.String(), "propagating variant images")
}

func TestRunFlushesAttachmentUpdatesInBatches(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	for _, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
		f.attachment(id, id+".jpg", true)
		f.productImage("pi-"+id, id, "p-"+id, "Global", 1)
	}
	f.params.BatchSize = 2

	f.run()

	var hashed int64
	require.NoError(t, f.conn.Model(&models.Attachment{}).Where("hash_md5 IS NOT NULL").Count(&hashed).Error)
	assert.Equal(t, int64(5), hashed)

	mfs, err := f.registry.Gather()
	require.NoError(t, err)
	var flushes float64
	for _, mf := range mfs {
		if mf.GetName() == "pimimage_statement_flushes_total" {
			flushes = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	// 5 attachment updates plus 15 main image statements in batches of 2.
	assert.Equal(t, float64(3+8), flushes)
}

type erroringReader struct{}

func (erroringReader) LoadRows(context.Context) ([]legacy.Row, error) {
	return nil, stdErrors.New("relation pim_image does not exist")
}

func (erroringReader) LoadChannels(context.Context) (legacy.ChannelMap, error) {
	return legacy.ChannelMap{}, nil
}

func TestRunFatalLeavesLegacyTables(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.params.Reader = erroringReader{}

	err := f.migrator().Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeFatal))
	assert.True(t, strings.Contains(err.Error(), PhaseLoad))
	assert.True(t, f.conn.Migrator().HasTable("pim_image"))
	assert.Contains(t, f.logs.String(), "migration aborted")
}

func TestRunFatalOnRelationInsertFailure(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.attachment("att-1", "a.jpg", true)
	f.productImage("pi-1", "att-1", "p-1", "Global", 1)
	f.productImage("pi-2", "att-1", "p-2", "Global", 1)
	// the writer path collides with an existing relation id
	require.NoError(t, f.conn.Create(&models.AssetRelation{ID: RelationID("pi-1", "p-1")}).Error)
	require.NoError(t, f.conn.Create(&models.AssetRelation{ID: RelationID("pi-2", "p-2")}).Error)

	err := f.migrator().Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeFatal))
	assert.Contains(t, err.Error(), "already exists")
	assert.True(t, f.conn.Migrator().HasTable("pim_image"))
}

type heldLock struct{ released bool }

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }

func (l *heldLock) Release(context.Context) error { l.released = true; return nil }

func TestRunRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.params.Lock = &heldLock{}

	err := f.migrator().Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConflict))
	assert.True(t, f.conn.Migrator().HasTable("pim_image"))
}

func TestRunProbesReadinessBeforeWriting(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	probes := 0
	f.params.Ready = func(context.Context) error {
		probes++
		return stdErrors.New("indexer warming up")
	}
	f.params.ReadinessDelay = 1

	f.run()
	assert.Equal(t, 2, probes)
}

func TestNewMigratorValidatesParams(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	mutations := []func(p *Params){
		func(p *Params) { p.Logger = nil },
		func(p *Params) { p.Reader = nil },
		func(p *Params) { p.Executor = nil },
		func(p *Params) { p.Creator = nil },
		func(p *Params) { p.Collections = nil },
		func(p *Params) { p.Resolver = nil },
		func(p *Params) { p.Hasher = nil },
		func(p *Params) { p.Locales = nil },
	}
	for i, mutate := range mutations {
		params := f.params
		mutate(&params)
		_, err := NewMigrator(params)
		require.Error(t, err, "mutation %d", i)
		assert.True(t, errors.Is(err, errors.CodeValidation))
	}

	m, err := NewMigrator(f.params)
	require.NoError(t, err)
	assert.Equal(t, db.DefaultBatchSize, m.batchSize)
	assert.Equal(t, "system", m.systemUserID)
}
