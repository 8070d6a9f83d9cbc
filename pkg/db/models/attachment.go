package models

// Attachment is the host's raw file record. The migration mutates it in place.
type Attachment struct {
	ID              string  `gorm:"column:id;type:varchar(24);primaryKey"`
	Name            string  `gorm:"column:name;type:varchar(255)"`
	Storage         *string `gorm:"column:storage;type:varchar(24)"`
	StorageFilePath *string `gorm:"column:storage_file_path;type:varchar(260)"`
	TmpPath         *string `gorm:"column:tmp_path;type:varchar(255)"`
	HashMD5         *string `gorm:"column:hash_md5;type:varchar(255)"`
	RelatedType     *string `gorm:"column:related_type;type:varchar(100)"`
	ParentType      *string `gorm:"column:parent_type;type:varchar(100)"`
	Deleted         bool    `gorm:"column:deleted;not null;default:false"`
}

func (Attachment) TableName() string { return "attachment" }
