package model

// CatalogChunk 对应于数据库中的 catalog_chunks 表。
// 每一行是目录文档切分后的一个文本块，连同提取出的紧固件元数据。
// 常用的筛选字段（标准号、螺纹、材料、供应商）单独成列并建索引，
// 完整的元数据以 JSON 形式整体保存。
type CatalogChunk struct {
	ChunkPK      uint    `gorm:"primaryKey;autoIncrement;column:chunk_pk"`
	FileMD5      string  `gorm:"type:varchar(32);not null;index;column:file_md5"`
	ChunkID      int     `gorm:"not null;column:chunk_id"`
	TextContent  string  `gorm:"type:text;column:text_content"`
	Standard     string  `gorm:"type:varchar(20);index;column:standard"`
	ThreadType   string  `gorm:"type:varchar(20);index;column:thread_type"`
	Material     string  `gorm:"type:varchar(30);index;column:material"`
	Supplier     string  `gorm:"type:varchar(50);index;column:supplier"`
	Category     string  `gorm:"type:varchar(20);column:category"`
	Confidence   float64 `gorm:"column:confidence"`
	MetadataJSON string  `gorm:"type:json;column:metadata_json"`
	ModelVersion string  `gorm:"type:varchar(50);column:model_version"`
	UserID       uint    `gorm:"not null;column:user_id"`
	OrgTag       string  `gorm:"type:varchar(50);column:org_tag"`
	IsPublic     bool    `gorm:"not null;default:false;column:is_public"`
}

func (CatalogChunk) TableName() string {
	return "catalog_chunks"
}
