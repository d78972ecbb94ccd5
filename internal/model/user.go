// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// User 对应于数据库中的 'users' 表。
type User struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	// Password 存储 bcrypt 哈希，绝不以明文返回给前端。
	Password string `gorm:"type:varchar(100);not null" json:"-"`
	Role     string `gorm:"type:varchar(20);not null;default:'USER'" json:"role"` // "USER" 或 "ADMIN"
	// OrgTags 是逗号分隔的组织标签列表，例如 "PRIVATE_alice,EINKAUF"。
	OrgTags    string    `gorm:"type:varchar(500)" json:"orgTags"`
	PrimaryOrg string    `gorm:"type:varchar(255)" json:"primaryOrg"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}
