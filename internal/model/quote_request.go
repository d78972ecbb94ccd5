// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 询价单状态。
const (
	QuoteStatusOpen      = "OPEN"
	QuoteStatusAnswered  = "ANSWERED"
	QuoteStatusCancelled = "CANCELLED"
)

// QuoteRequest 对应于数据库中的 'quote_requests' 表。
// 采购方基于搜索结果对某条目录条目发起询价。
type QuoteRequest struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint   `gorm:"index;not null" json:"userId"`
	FileMD5  string `gorm:"type:varchar(32);not null" json:"fileMd5"`
	ChunkID  int    `gorm:"not null" json:"chunkId"`
	Standard string `gorm:"type:varchar(20)" json:"standard"`
	// ThreadType 与 Material 在下单时从搜索结果的元数据里带过来，
	// 供应商无需回查目录即可报价。
	ThreadType string     `gorm:"type:varchar(20)" json:"threadType"`
	Material   string     `gorm:"type:varchar(30)" json:"material"`
	Supplier   string     `gorm:"type:varchar(50)" json:"supplier"`
	Quantity   int        `gorm:"not null" json:"quantity"`
	Remark     string     `gorm:"type:text" json:"remark"`
	Status     string     `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	AnsweredAt *time.Time `gorm:"default:null" json:"answeredAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (QuoteRequest) TableName() string {
	return "quote_requests"
}
