// Package assets persists the assets and collection produced by the
// pim image migration.
package assets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/catalogtools/pimasset/pkg/db/models"
	"github.com/catalogtools/pimasset/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IDLength matches the length of host-generated entity ids.
const IDLength = 17

var localizedColumn = regexp.MustCompile(`^name_[a-z0-9_]+$`)

// SeedLink is the first parent an asset is attached to when it is created.
// AssignedUserID, when set, overrides the asset's assignee on the relation.
type SeedLink struct {
	EntityName     enums.EntityName
	EntityID       string
	SortOrder      int
	AssignedUserID string
}

// LocalizedName is one per-locale copy of the asset's display name.
type LocalizedName struct {
	Locale string
	Field  string
	Value  string
}

// NewAsset carries everything needed to create one asset.
type NewAsset struct {
	Type           enums.AssetType
	Private        bool
	FileID         string
	FileName       string
	Name           string
	NameOfFile     string
	Code           string
	CollectionID   string
	Seed           SeedLink
	LocalizedNames []LocalizedName
	AssignedUserID *string
	CreatedByID    string
}

// DisplayName returns the file name up to its first dot.
func DisplayName(fileName string) string {
	name, _, _ := strings.Cut(fileName, ".")
	return name
}

// LocalizedField returns the asset column holding the name for locale.
func LocalizedField(locale string) string {
	return "name_" + strings.ToLower(strings.TrimSpace(locale))
}

// LocalizedNames builds one entry per locale, all carrying value.
func LocalizedNames(locales []string, value string) []LocalizedName {
	if len(locales) == 0 {
		return nil
	}
	out := make([]LocalizedName, 0, len(locales))
	for _, locale := range locales {
		out = append(out, LocalizedName{Locale: locale, Field: LocalizedField(locale), Value: value})
	}
	return out
}

// NewCode returns a fresh opaque asset code.
func NewCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewID returns a fresh id sized like the host's ids.
func NewID() string {
	return NewCode()[:IDLength]
}

// Creator persists new assets.
type Creator interface {
	CreateAsset(ctx context.Context, asset NewAsset) (string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GormCreator writes the asset, its localized names and its seed relation
// in one transaction.
type GormCreator struct {
	runner txRunner
	newID  func() string
}

// NewGormCreator constructs a creator bound to runner.
func NewGormCreator(runner txRunner) (*GormCreator, error) {
	if runner == nil {
		return nil, errors.New("asset creator requires a transaction runner")
	}
	return &GormCreator{runner: runner, newID: NewID}, nil
}

// CreateAsset validates the record, persists it and returns the new asset id.
func (c *GormCreator) CreateAsset(ctx context.Context, in NewAsset) (string, error) {
	if err := validate(in); err != nil {
		return "", err
	}

	asset := models.Asset{
		ID:             c.newID(),
		Name:           in.Name,
		NameOfFile:     in.NameOfFile,
		Type:           in.Type.String(),
		Private:        in.Private,
		FileID:         in.FileID,
		Code:           in.Code,
		CollectionID:   in.CollectionID,
		AssignedUserID: in.AssignedUserID,
		CreatedByID:    in.CreatedByID,
	}
	scope := enums.ScopeGlobal.String()
	seedAssignee := in.AssignedUserID
	if in.Seed.AssignedUserID != "" {
		seedAssignee = &in.Seed.AssignedUserID
	}
	seed := models.AssetRelation{
		ID:             c.newID(),
		Name:           in.FileName,
		EntityName:     in.Seed.EntityName.String(),
		EntityID:       in.Seed.EntityID,
		AssetID:        asset.ID,
		SortOrder:      in.Seed.SortOrder,
		Scope:          &scope,
		CreatedByID:    in.CreatedByID,
		AssignedUserID: seedAssignee,
	}

	err := c.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&asset).Error; err != nil {
			return fmt.Errorf("insert asset: %w", err)
		}
		for _, localized := range in.LocalizedNames {
			stmt := fmt.Sprintf("UPDATE asset SET %s = ? WHERE id = ?", localized.Field)
			if err := tx.Exec(stmt, localized.Value, asset.ID).Error; err != nil {
				return fmt.Errorf("set %s: %w", localized.Field, err)
			}
		}
		if err := tx.Create(&seed).Error; err != nil {
			return fmt.Errorf("insert seed relation: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return asset.ID, nil
}

func validate(in NewAsset) error {
	if in.FileID == "" {
		return errors.New("asset file id is required")
	}
	if in.CollectionID == "" {
		return errors.New("asset collection id is required")
	}
	if !in.Seed.EntityName.IsValid() || in.Seed.EntityID == "" {
		return fmt.Errorf("invalid seed link %s/%q", in.Seed.EntityName, in.Seed.EntityID)
	}
	for _, localized := range in.LocalizedNames {
		if !localizedColumn.MatchString(localized.Field) {
			return fmt.Errorf("invalid localized field %q for locale %q", localized.Field, localized.Locale)
		}
	}
	return nil
}
