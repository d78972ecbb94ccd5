// Package catalog 实现了目录智能层：元数据提取、查询分类与混合重排。
// 该包内的所有函数都是纯函数：无 I/O、无共享可变状态，可被任意数量的
// 请求协程并发调用。
package catalog

// 产品类型枚举值。
const (
	ProductTypeBolt   = "bolt"
	ProductTypeScrew  = "screw"
	ProductTypeNut    = "nut"
	ProductTypeWasher = "washer"
	ProductTypeStud   = "stud"
	ProductTypeAnchor = "anchor"
	ProductTypeRivet  = "rivet"
	ProductTypeOther  = "other"
)

// 头型枚举值。
const (
	HeadTypeHex         = "hex"
	HeadTypeSocket      = "socket"
	HeadTypePan         = "pan"
	HeadTypeCountersunk = "countersunk"
	HeadTypeButton      = "button"
	HeadTypeFlange      = "flange"
)

// 表面处理枚举值。
const (
	FinishZincPlated       = "zinc-plated"
	FinishHotDipGalvanized = "hot-dip-galvanized"
	FinishBlackOxide       = "black-oxide"
	FinishPassivated       = "passivated"
	FinishPlain            = "plain"
)

// ChunkMetadata 是从一段目录文本中提取出的结构化属性记录。
// 每个可选字段要么为空（未提取到），要么派生自源文本中真实存在的子串；
// 提取过程绝不失败，缺字段不缺记录。
type ChunkMetadata struct {
	ProductName         string   `json:"productName,omitempty"`
	ProductType         string   `json:"productType,omitempty"`
	Material            string   `json:"material,omitempty"`
	ThreadType          string   `json:"threadType,omitempty"`
	Dimensions          string   `json:"dimensions,omitempty"`
	HeadType            string   `json:"headType,omitempty"`
	Standard            string   `json:"standard,omitempty"`  // 展示形式，如 "DIN 933"
	Standards           []string `json:"standards,omitempty"` // 文中全部规范化标准号，按出现顺序
	EquivalentStandards []string `json:"equivalentStandards,omitempty"`
	Finish              string   `json:"finish,omitempty"`
	Supplier            string   `json:"supplier,omitempty"`
	PriceInfo           string   `json:"priceInfo,omitempty"`
	PackagingUnit       string   `json:"packagingUnit,omitempty"`
	BoxQuantity         int      `json:"boxQuantity,omitempty"`
	Category            string   `json:"category,omitempty"`
	Confidence          float64  `json:"confidence"`
}

// QueryType 表示用户查询的分类结果。
type QueryType string

// 查询类型枚举值，按分类优先级排列。
const (
	QueryTypeStandardCode QueryType = "STANDARD_CODE"
	QueryTypeThreadSpec   QueryType = "THREAD_SPEC"
	QueryTypeMaterialSpec QueryType = "MATERIAL_SPEC"
	QueryTypeProductType  QueryType = "PRODUCT_TYPE"
	QueryTypeSupplierName QueryType = "SUPPLIER_NAME"
	QueryTypeMixed        QueryType = "MIXED"
	QueryTypeGeneral      QueryType = "GENERAL"
)

// QueryAnalysis 是查询分类的完整输出。每次查询计算一次，之后不可变，
// 不做持久化。即便某个字段没有参与类型判定，提取结果也原样携带。
type QueryAnalysis struct {
	Type                     QueryType `json:"type"`
	ExtractedStandard        string    `json:"extractedStandard,omitempty"`        // 规范化形式，如 "DIN933"
	ExtractedStandardDisplay string    `json:"extractedStandardDisplay,omitempty"` // 展示形式，如 "DIN 933"
	ExtractedThread          string    `json:"extractedThread,omitempty"`
	ExtractedMaterial        string    `json:"extractedMaterial,omitempty"`
	ExtractedProductType     string    `json:"extractedProductType,omitempty"`
	ExtractedSupplier        string    `json:"extractedSupplier,omitempty"`
	Confidence               float64   `json:"confidence"`
	RequiresExactMatch       bool      `json:"requiresExactMatch"`
}

// Candidate 是重排器的输入：外部向量索引返回的一条候选。
// Score 是外部计算好的向量相似度，取值范围 [0,1]。
type Candidate struct {
	ID       string
	Content  string
	Score    float64
	Metadata ChunkMetadata
}

// Boosts 记录关键词打分中每个信号的贡献值，用于观测与调试；
// 即使全为零也会返回。
type Boosts struct {
	StandardMatch float64 `json:"standardMatch"`
	ThreadMatch   float64 `json:"threadMatch"`
	MaterialMatch float64 `json:"materialMatch"`
	SupplierMatch float64 `json:"supplierMatch"`
}

// ScoredResult 是一条候选针对一次查询的最终打分结果。
// 每次检索请求新建，调用方独占，不跨请求共享。
type ScoredResult struct {
	ID                 string        `json:"id"`
	Content            string        `json:"content"`
	Metadata           ChunkMetadata `json:"metadata"`
	VectorScore        float64       `json:"vectorScore"`
	KeywordScore       float64       `json:"keywordScore"`
	HybridScore        int           `json:"hybridScore"`
	ExactStandardMatch bool          `json:"exactStandardMatch"`
	Boosts             Boosts        `json:"boosts"`
}
