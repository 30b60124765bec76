package models

import (
	"time"

	"gorm.io/datatypes"
)

// PageVersion is an immutable snapshot of a page's builder content.
type PageVersion struct {
	PageID    string      `json:"pageId"`
	Shop      string      `json:"shop"`
	Version   int         `json:"version"`
	Title     string      `json:"title"`
	Content   PageContent `json:"content"`
	Comment   string      `json:"comment"`
	CreatedBy string      `json:"createdBy"`
	CreatedAt time.Time   `json:"createdAt"`
}

// PageVersionRecord is the relational row backing PageVersion. The composite
// unique index is what serializes concurrent version assignment.
type PageVersionRecord struct {
	ID        uint           `gorm:"primaryKey"`
	Shop      string         `gorm:"size:255;not null;uniqueIndex:idx_page_version,priority:1"`
	PageID    string         `gorm:"size:64;not null;uniqueIndex:idx_page_version,priority:2"`
	Version   int            `gorm:"not null;uniqueIndex:idx_page_version,priority:3"`
	Title     string         `gorm:"size:255"`
	Content   datatypes.JSON `gorm:"not null"`
	Comment   string         `gorm:"type:text"`
	CreatedBy string         `gorm:"size:255"`
	CreatedAt time.Time      `gorm:"index"`
}

func (PageVersionRecord) TableName() string {
	return "page_versions"
}
