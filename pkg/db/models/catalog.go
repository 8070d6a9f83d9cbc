package models

// Product is the slice of the host product table the migration touches.
// ConfigurableProductID and Data only exist on schemas with variants.
type Product struct {
	ID                    string  `gorm:"column:id;type:varchar(24);primaryKey"`
	ImageID               *string `gorm:"column:image_id;type:varchar(24)"`
	ConfigurableProductID *string `gorm:"column:configurable_product_id;type:varchar(24)"`
	Data                  *string `gorm:"column:data;type:text"`
	Deleted               bool    `gorm:"column:deleted;not null;default:false"`
}

func (Product) TableName() string { return "product" }

// Category is the slice of the host category table the migration touches.
type Category struct {
	ID      string  `gorm:"column:id;type:varchar(24);primaryKey"`
	ImageID *string `gorm:"column:image_id;type:varchar(24)"`
	Deleted bool    `gorm:"column:deleted;not null;default:false"`
}

func (Category) TableName() string { return "category" }
