package models

// Asset is a deduplicated gallery image built from one attachment.
// Localized name columns (name_<locale>) are written separately by the creator.
type Asset struct {
	ID             string  `gorm:"column:id;type:varchar(24);primaryKey"`
	Name           string  `gorm:"column:name;type:varchar(255)"`
	NameOfFile     string  `gorm:"column:name_of_file;type:varchar(255)"`
	Type           string  `gorm:"column:type;type:varchar(255)"`
	Private        bool    `gorm:"column:private;not null;default:false"`
	FileID         string  `gorm:"column:file_id;type:varchar(24)"`
	Code           string  `gorm:"column:code;type:varchar(255)"`
	CollectionID   string  `gorm:"column:collection_id;type:varchar(24)"`
	AssignedUserID *string `gorm:"column:assigned_user_id;type:varchar(24)"`
	CreatedByID    string  `gorm:"column:created_by_id;type:varchar(24)"`
	Deleted        bool    `gorm:"column:deleted;not null;default:false"`
}

func (Asset) TableName() string { return "asset" }

// AssetRelation binds an asset to one product or category.
type AssetRelation struct {
	ID             string  `gorm:"column:id;type:varchar(24);primaryKey"`
	Name           string  `gorm:"column:name;type:varchar(255)"`
	EntityName     string  `gorm:"column:entity_name;type:varchar(255)"`
	EntityID       string  `gorm:"column:entity_id;type:varchar(24)"`
	AssetID        string  `gorm:"column:asset_id;type:varchar(24)"`
	SortOrder      int     `gorm:"column:sort_order;default:0"`
	Scope          *string `gorm:"column:scope;type:varchar(255)"`
	Role           *string `gorm:"column:role;type:text"`
	CreatedByID    string  `gorm:"column:created_by_id;type:varchar(24)"`
	AssignedUserID *string `gorm:"column:assigned_user_id;type:varchar(24)"`
	Deleted        bool    `gorm:"column:deleted;not null;default:false"`
}

func (AssetRelation) TableName() string { return "asset_relation" }

// AssetRelationChannel restricts a Channel-scoped relation to one channel.
type AssetRelationChannel struct {
	ChannelID       string `gorm:"column:channel_id;type:varchar(24);not null"`
	AssetRelationID string `gorm:"column:asset_relation_id;type:varchar(24);not null"`
	Deleted         bool   `gorm:"column:deleted;not null;default:false"`
}

func (AssetRelationChannel) TableName() string { return "asset_relation_channel" }

// Collection groups migrated assets. One row per code.
type Collection struct {
	ID       string `gorm:"column:id;type:varchar(24);primaryKey"`
	Name     string `gorm:"column:name;type:varchar(255)"`
	Code     string `gorm:"column:code;type:varchar(255)"`
	IsActive bool   `gorm:"column:is_active;not null;default:false"`
	Deleted  bool   `gorm:"column:deleted;not null;default:false"`
}

func (Collection) TableName() string { return "collection" }
