package models

// PimImage is the legacy association between an attachment and a product or category.
// Read once by the migration, then dropped.
type PimImage struct {
	ID             string  `gorm:"column:id;type:varchar(24);primaryKey"`
	ImageID        string  `gorm:"column:image_id;type:varchar(24)"`
	ProductID      *string `gorm:"column:product_id;type:varchar(24)"`
	CategoryID     *string `gorm:"column:category_id;type:varchar(24)"`
	Scope          *string `gorm:"column:scope;type:varchar(255)"`
	SortOrder      int     `gorm:"column:sort_order;not null;default:0"`
	AssignedUserID *string `gorm:"column:assigned_user_id;type:varchar(24)"`
	Deleted        bool    `gorm:"column:deleted;not null;default:false"`
}

func (PimImage) TableName() string { return "pim_image" }

// PimImageChannel restricts a legacy image to a sales channel.
type PimImageChannel struct {
	PimImageID string `gorm:"column:pim_image_id;type:varchar(24);not null"`
	ChannelID  string `gorm:"column:channel_id;type:varchar(24);not null"`
	Deleted    bool   `gorm:"column:deleted;not null;default:false"`
}

func (PimImageChannel) TableName() string { return "pim_image_channel" }
