// Package pimimage migrates legacy pim images into assets and asset
// relations. A run is terminal: the legacy tables are dropped at the end.
package pimimage

import (
	"context"
	stdErrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/catalogtools/pimasset/internal/assets"
	"github.com/catalogtools/pimasset/internal/legacy"
	"github.com/catalogtools/pimasset/internal/lock"
	"github.com/catalogtools/pimasset/internal/readiness"
	"github.com/catalogtools/pimasset/internal/storage"
	"github.com/catalogtools/pimasset/pkg/db"
	"github.com/catalogtools/pimasset/pkg/enums"
	"github.com/catalogtools/pimasset/pkg/errors"
	"github.com/catalogtools/pimasset/pkg/logger"
	"github.com/catalogtools/pimasset/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultSystemUserID   = "system"
	defaultReadinessDelay = 5 * time.Second
)

// Phase names used in logs and metrics.
const (
	PhaseLoad      = "load"
	PhaseDedup     = "dedup"
	PhaseScope     = "scope"
	PhaseMainImage = "main_image"
	PhaseVariants  = "variants"
	PhaseCleanup   = "cleanup"
)

// RowReader loads the legacy rows and channel links.
type RowReader interface {
	LoadRows(ctx context.Context) ([]legacy.Row, error)
	LoadChannels(ctx context.Context) (legacy.ChannelMap, error)
}

// Executor runs raw statements against the catalog database.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) *gorm.DB
	Raw(ctx context.Context, query string, args ...any) *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	HasColumn(ctx context.Context, table, column string) bool
	DropTables(ctx context.Context, tables ...string) error
}

// CollectionSource yields the collection every migrated asset joins.
type CollectionSource interface {
	ID(ctx context.Context) (string, error)
}

// LocaleSource lists the input locales that get a localized asset name.
type LocaleSource interface {
	InputLocales() []string
}

// Params configure a Migrator.
type Params struct {
	Logger      *logger.Logger
	Reader      RowReader
	Executor    Executor
	Creator     assets.Creator
	Collections CollectionSource
	Resolver    storage.Resolver
	Hasher      storage.Hasher
	Locales     LocaleSource
	Lock        lock.Lock
	Metrics     *metrics.MigrationMetrics

	// Ready is probed before any write. Nil skips the wait.
	Ready          readiness.Probe
	ReadinessDelay time.Duration
	BatchSize      int
	SystemUserID   string
}

// Migrator converts pim_image rows into assets. It is not safe for
// concurrent use; the run lock keeps other processes out.
type Migrator struct {
	logg           *logger.Logger
	reader         RowReader
	exec           Executor
	creator        assets.Creator
	collections    CollectionSource
	resolver       storage.Resolver
	hasher         storage.Hasher
	locales        LocaleSource
	lock           lock.Lock
	metrics        *metrics.MigrationMetrics
	ready          readiness.Probe
	readinessDelay time.Duration
	batchSize      int
	systemUserID   string
	newCode        func() string
}

// NewMigrator validates params and builds a Migrator.
func NewMigrator(params Params) (*Migrator, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New(errors.CodeValidation, "logger required")
	case params.Reader == nil:
		return nil, errors.New(errors.CodeValidation, "legacy reader required")
	case params.Executor == nil:
		return nil, errors.New(errors.CodeValidation, "executor required")
	case params.Creator == nil:
		return nil, errors.New(errors.CodeValidation, "asset creator required")
	case params.Collections == nil:
		return nil, errors.New(errors.CodeValidation, "collection source required")
	case params.Resolver == nil:
		return nil, errors.New(errors.CodeValidation, "storage resolver required")
	case params.Hasher == nil:
		return nil, errors.New(errors.CodeValidation, "hasher required")
	case params.Locales == nil:
		return nil, errors.New(errors.CodeValidation, "locale source required")
	}
	runLock := params.Lock
	if runLock == nil {
		runLock = lock.NoopLock{}
	}
	delay := params.ReadinessDelay
	if delay <= 0 {
		delay = defaultReadinessDelay
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = db.DefaultBatchSize
	}
	systemUserID := params.SystemUserID
	if systemUserID == "" {
		systemUserID = defaultSystemUserID
	}
	return &Migrator{
		logg:           params.Logger,
		reader:         params.Reader,
		exec:           params.Executor,
		creator:        params.Creator,
		collections:    params.Collections,
		resolver:       params.Resolver,
		hasher:         params.Hasher,
		locales:        params.Locales,
		lock:           runLock,
		metrics:        params.Metrics,
		ready:          params.Ready,
		readinessDelay: delay,
		batchSize:      batchSize,
		systemUserID:   systemUserID,
		newCode:        assets.NewCode,
	}, nil
}

// run holds the state of one Run call.
type run struct {
	m        *Migrator
	rows     []legacy.Row
	channels legacy.ChannelMap
	locales  []string
	queue    *db.StatementQueue

	// attachment id -> asset id
	migrated map[string]string
	// asset ids linked to a channel through some legacy row, in first-seen order
	touched    []string
	touchedSet map[string]struct{}

	stats runStats
}

type runStats struct {
	rows     int
	migrated int
	reused   int
	skipped  int
	failed   int
}

// Run migrates every legacy row, resolves scopes and main images, then drops
// the legacy tables. Any bulk failure aborts the run with a Fatal error and
// leaves the legacy tables in place.
func (m *Migrator) Run(ctx context.Context) error {
	ctx = m.logg.WithRunID(ctx, uuid.NewString())

	locked, err := m.lock.Acquire(ctx)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "acquire run lock")
	}
	if !locked {
		return errors.New(errors.CodeConflict, "another pim image migration is running")
	}
	defer func() {
		if relErr := m.lock.Release(ctx); relErr != nil {
			m.logg.Error(ctx, "failed to release migration lock", relErr)
		}
	}()

	if err := readiness.Wait(ctx, m.ready, m.readinessDelay, m.logg); err != nil {
		return errors.Wrap(errors.CodeFatal, err, "await readiness")
	}

	r, err := m.newRun()
	if err != nil {
		return errors.Wrap(errors.CodeFatal, err, "prepare run")
	}

	phases := []struct {
		name string
		fn   func(context.Context) error
	}{
		{PhaseLoad, r.load},
		{PhaseDedup, r.dedup},
		{PhaseScope, r.resolveScopes},
		{PhaseMainImage, r.electMainImages},
		{PhaseVariants, r.propagateVariants},
		{PhaseCleanup, r.cleanup},
	}
	for _, phase := range phases {
		if err := m.runPhase(ctx, phase.name, phase.fn); err != nil {
			return err
		}
	}

	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"rows":     r.stats.rows,
		"migrated": r.stats.migrated,
		"reused":   r.stats.reused,
		"skipped":  r.stats.skipped,
		"failed":   r.stats.failed,
		"flushes":  r.queue.Flushes(),
	}), "migration complete")
	return nil
}

func (m *Migrator) newRun() (*run, error) {
	queue, err := db.NewStatementQueue(m.exec, m.batchSize)
	if err != nil {
		return nil, err
	}
	queue.OnFlush(func(int) { m.metrics.IncFlush() })
	return &run{
		m:          m,
		locales:    m.locales.InputLocales(),
		queue:      queue,
		migrated:   map[string]string{},
		touchedSet: map[string]struct{}{},
	}, nil
}

func (m *Migrator) runPhase(ctx context.Context, name string, fn func(context.Context) error) error {
	phaseCtx := m.logg.WithPhase(ctx, name)
	start := time.Now()
	err := fn(phaseCtx)
	duration := time.Since(start)
	m.metrics.ObservePhase(name, duration)
	if err != nil {
		wrapped := errors.Wrap(errors.CodeFatal, err, name)
		m.logg.Error(m.logg.WithField(phaseCtx, "error_dump", errors.Dump(err)), "migration aborted", wrapped)
		return wrapped
	}
	m.logg.Debug(m.logg.WithField(phaseCtx, "duration_ms", duration.Milliseconds()), "phase complete")
	return nil
}

func (r *run) load(ctx context.Context) error {
	rows, err := r.m.reader.LoadRows(ctx)
	if err != nil {
		return err
	}
	channels, err := r.m.reader.LoadChannels(ctx)
	if err != nil {
		return err
	}
	r.rows = rows
	r.channels = channels
	r.stats.rows = len(rows)
	return nil
}

// dedup walks the rows once, creating one asset per attachment and a
// relation for every further parent of an already migrated attachment.
func (r *run) dedup(ctx context.Context) error {
	logg := r.m.logg
	logg.Info(ctx, "creating assets")

	total := len(r.rows)
	for i, row := range r.rows {
		if total > 1 && i > 0 && i == total/2 {
			logg.Info(logg.WithField(ctx, "processed", i), fmt.Sprintf("created %d of %d assets", i, total))
		}
		if err := r.processRow(ctx, row); err != nil {
			return err
		}
	}
	return r.queue.Flush(ctx)
}

func (r *run) processRow(ctx context.Context, row legacy.Row) error {
	entity, parentID := row.Parent()
	if parentID == "" {
		r.skip()
		return nil
	}

	if assetID, ok := r.migrated[row.AttachmentID]; ok {
		var scope *string
		if row.LegacyScope() == enums.ScopeChannel.String() {
			channel := enums.ScopeChannel.String()
			scope = &channel
		}
		if err := r.writeRelation(ctx, row, entity, parentID, assetID, scope); err != nil {
			return err
		}
		r.touch(row, assetID)
		r.stats.reused++
		r.m.metrics.IncRow(metrics.OutcomeReused)
		return nil
	}

	path, err := r.m.resolver.FilePath(ctx, row.Attachment())
	if err != nil {
		if stdErrors.Is(err, storage.ErrNotFound) {
			r.skip()
			return nil
		}
		return fmt.Errorf("resolve attachment %s: %w", row.AttachmentID, err)
	}
	hash, err := r.m.hasher.HashFile(path)
	if err != nil {
		// unreadable files decay the same way missing ones do
		r.skip()
		return nil
	}
	if err := r.queueAttachmentUpdate(ctx, row, path, hash); err != nil {
		return err
	}

	assetID, err := r.createAsset(ctx, row, entity, parentID)
	if err != nil {
		r.logCreationFailure(ctx, row, err)
		return nil
	}
	r.migrated[row.AttachmentID] = assetID
	r.touch(row, assetID)
	r.stats.migrated++
	r.m.metrics.IncRow(metrics.OutcomeMigrated)
	return nil
}

func (r *run) queueAttachmentUpdate(ctx context.Context, row legacy.Row, path, hash string) error {
	if row.HasTmpPath() {
		return r.queue.Add(ctx,
			"UPDATE attachment SET hash_md5 = ?, related_type = ?, parent_type = ? WHERE id = ?",
			hash, enums.AttachmentRelatedType, enums.AttachmentRelatedType, row.AttachmentID)
	}
	return r.queue.Add(ctx,
		"UPDATE attachment SET hash_md5 = ?, related_type = ?, parent_type = ?, tmp_path = ? WHERE id = ?",
		hash, enums.AttachmentRelatedType, enums.AttachmentRelatedType, path, row.AttachmentID)
}

// creationError keeps the call site of a failed asset creation.
type creationError struct {
	err    error
	source string
}

func (e *creationError) Error() string { return e.err.Error() }

func (e *creationError) Unwrap() error { return e.err }

func (r *run) createAsset(ctx context.Context, row legacy.Row, entity enums.EntityName, parentID string) (string, error) {
	collectionID, err := r.m.collections.ID(ctx)
	if err != nil {
		return "", &creationError{err: err, source: sourceLocation()}
	}
	name := assets.DisplayName(row.Name)
	seed := assets.SeedLink{
		EntityName:     entity,
		EntityID:       parentID,
		SortOrder:      row.SortOrder,
		AssignedUserID: r.assignee(row),
	}
	assetID, err := r.m.creator.CreateAsset(ctx, assets.NewAsset{
		Type:           enums.AssetTypeGalleryImage,
		Private:        true,
		FileID:         row.AttachmentID,
		FileName:       row.Name,
		Name:           name,
		NameOfFile:     name,
		Code:           r.m.newCode(),
		CollectionID:   collectionID,
		Seed:           seed,
		LocalizedNames: assets.LocalizedNames(r.locales, name),
		AssignedUserID: row.AssignedUserID,
		CreatedByID:    r.m.systemUserID,
	})
	if err != nil {
		return "", &creationError{err: err, source: sourceLocation()}
	}
	return assetID, nil
}

func (r *run) logCreationFailure(ctx context.Context, row legacy.Row, err error) {
	source := ""
	var ce *creationError
	if stdErrors.As(err, &ce) {
		source = ce.source
	}
	logg := r.m.logg
	logCtx := logg.WithAttachmentID(ctx, row.AttachmentID)
	logCtx = logg.WithField(logCtx, "source", source)
	logg.Error(logCtx, "error migrating pim image to asset",
		errors.Wrap(errors.CodeAssetCreation, err, "create asset for attachment "+row.AttachmentID))
	r.stats.failed++
	r.m.metrics.IncRow(metrics.OutcomeFailed)
}

func (r *run) touch(row legacy.Row, assetID string) {
	if !r.channels.Has(row.PimImageID) {
		return
	}
	if _, seen := r.touchedSet[assetID]; seen {
		return
	}
	r.touchedSet[assetID] = struct{}{}
	r.touched = append(r.touched, assetID)
}

func (r *run) skip() {
	r.stats.skipped++
	r.m.metrics.IncRow(metrics.OutcomeSkipped)
}

// sourceLocation returns file:line of its caller.
func sourceLocation() string {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
