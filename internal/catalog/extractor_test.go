package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return NewExtractor(DefaultStandardsKB())
}

// 核心场景：一行典型目录文本应提取出全部属性。
func TestExtractDenseCatalogLine(t *testing.T) {
	e := newTestExtractor()

	meta := e.Extract("Hexagon bolt DIN 933 M8x40 A2-70 S100 270,00")

	assert.Equal(t, ProductTypeBolt, meta.ProductType)
	assert.Equal(t, HeadTypeHex, meta.HeadType)
	assert.Equal(t, "DIN 933", meta.Standard)
	assert.Equal(t, "M8X40", meta.ThreadType)
	assert.Equal(t, "A2-70", meta.Material)
	assert.Equal(t, 100, meta.BoxQuantity)
	assert.Equal(t, "100 pcs", meta.PackagingUnit)
	assert.NotEmpty(t, meta.PriceInfo)
	assert.Contains(t, meta.EquivalentStandards, "ISO4017")
}

// 确定性：同一输入重复提取，结果完全一致。
func TestExtractDeterministic(t *testing.T) {
	e := newTestExtractor()
	text := "Sechskantschraube DIN 931 M12x80 8.8 verzinkt S50 12,30 14,80"

	first := e.Extract(text)
	second := e.Extract(text)

	assert.Equal(t, first, second)
}

// 置信度单调性：信号越多置信度越高。
func TestExtractConfidenceMonotonic(t *testing.T) {
	e := newTestExtractor()

	dense := e.Extract("DIN 933 M8x30 A2-70 S100 25.50")
	sparse := e.Extract("bolt")

	assert.Greater(t, dense.Confidence, sparse.Confidence)
	assert.LessOrEqual(t, dense.Confidence, 1.0)
	assert.GreaterOrEqual(t, sparse.Confidence, 0.0)
}

// 未知标准：standard 照常设置，等价列表为空，绝不报错。
func TestExtractUnknownStandard(t *testing.T) {
	e := newTestExtractor()

	meta := e.Extract("Spezialschraube DIN 9999 M6x20")

	assert.Equal(t, "DIN 9999", meta.Standard)
	assert.Empty(t, meta.EquivalentStandards)
}

// 歧义输入按模式表顺序确定性解析：首个命中生效。
func TestExtractProductTypePriority(t *testing.T) {
	e := newTestExtractor()
	tests := []struct {
		name string
		text string
		want string
	}{
		{"bolt 优先于 screw", "hexagon bolt with screw thread", ProductTypeBolt},
		{"nut 优先于 washer", "hex nut with washer face", ProductTypeNut},
		{"德语 Mutter", "Sechskantmutter DIN 934", ProductTypeNut},
		{"washer", "flat washer DIN 125", ProductTypeWasher},
		{"screw", "socket head cap screw", ProductTypeScrew},
		{"stud", "threaded stud DIN 976", ProductTypeStud},
		{"anchor", "wedge anchor M10", ProductTypeAnchor},
		{"rivet", "blind rivet 4x10", ProductTypeRivet},
		{"无命中", "Lieferzeit 3 Wochen", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.text).ProductType)
		})
	}
}

func TestExtractThreads(t *testing.T) {
	e := newTestExtractor()

	meta := e.Extract("Verfügbar: M8x40, M 10 x 50, m12X60, M8x40 nochmal")

	// 首个出现作为 threadType；去重保持首见顺序
	assert.Equal(t, "M8X40", meta.ThreadType)
	assert.Equal(t, "M8X40, M10X50, M12X60", meta.Dimensions)
}

func TestExtractThreadsCap(t *testing.T) {
	text := "M1 M2 M3 M4 M5 M6 M8 M10 M12 M14 M16 M18 M20"

	threads := extractThreads(text)

	assert.Len(t, threads, maxThreadSizes)
	assert.Equal(t, "M1", threads[0])
}

func TestNormalizeMaterialCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"A2", "A2-70"},
		{"304", "A2-70"},
		{"a2-70", "A2-70"},
		{"A4", "A4-80"},
		{"316", "A4-80"},
		{"8.8", "8.8"},
		{"88", "8.8"},
		{"10.9", "10.9"},
		{"12.9", "12.9"},
		{"brass", "BRASS"},
		{"zinc", "ZINC"},
		{"titan grade 5", "TITAN GRADE 5"}, // 未知输入转大写透传
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeMaterialCode(tt.input), "input: %q", tt.input)
	}
}

// 规范化往返：不同别名收敛到同一代号，且规范化幂等。
func TestNormalizeMaterialCodeRoundTrip(t *testing.T) {
	assert.Equal(t, NormalizeMaterialCode("A2"), NormalizeMaterialCode("304"))
	assert.Equal(t, "A2-70", NormalizeMaterialCode("A2"))
	assert.Equal(t, NormalizeMaterialCode("8.8"), NormalizeMaterialCode("88"))

	for _, alias := range []string{"A2", "304", "A4", "316", "8.8", "brass"} {
		once := NormalizeMaterialCode(alias)
		assert.Equal(t, once, NormalizeMaterialCode(once))
	}
}

func TestExtractMaterialVersusFinish(t *testing.T) {
	e := newTestExtractor()

	// "zinc plated" 是表面处理词汇，不能当材料
	meta := e.Extract("Hexagon bolt DIN 933 M8x30 8.8 zinc plated")
	assert.Equal(t, "8.8", meta.Material)
	assert.Equal(t, FinishZincPlated, meta.Finish)

	// 裸 zinc 是材料
	meta = e.Extract("zinc die cast wing nut")
	assert.Equal(t, "ZINC", meta.Material)
}

func TestExtractFinishPriority(t *testing.T) {
	e := newTestExtractor()
	tests := []struct {
		text string
		want string
	}{
		{"hot dip galvanized bolt", FinishHotDipGalvanized},
		{"Sechskantschraube feuerverzinkt", FinishHotDipGalvanized},
		{"zinc plated screw", FinishZincPlated},
		{"Mutter verzinkt", FinishZincPlated},
		{"black oxide socket screw", FinishBlackOxide},
		{"A2 passivated", FinishPassivated},
		{"plain finish stud", FinishPlain},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Extract(tt.text).Finish, "text: %q", tt.text)
	}
}

func TestExtractHeadTypeFromStandardNumber(t *testing.T) {
	e := newTestExtractor()
	tests := []struct {
		text string
		want string
	}{
		{"DIN 933 M8x30", HeadTypeHex},
		{"ISO 4017 Schraube", HeadTypeHex},
		{"DIN 912 M6x16", HeadTypeSocket},
		{"Senkschraube DIN 7991", HeadTypeCountersunk},
		{"button head ISO 7380", HeadTypeButton},
		{"pan head screw", HeadTypePan},
		{"Flanschschraube DIN 6921", HeadTypeFlange},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Extract(tt.text).HeadType, "text: %q", tt.text)
	}
}

func TestExtractPriceRange(t *testing.T) {
	e := newTestExtractor()

	meta := e.Extract("DIN 933 M8x30: 25,50 / M8x40: 27,90 / M8x50: 31,10 EUR")
	assert.Equal(t, "€25.50 - €31.10", meta.PriceInfo)

	// 单一价格：最小最大相同
	meta = e.Extract("S100 270,00")
	assert.Equal(t, "€270.00 - €270.00", meta.PriceInfo)

	// 无价格记号：字段缺省而非报错
	meta = e.Extract("Hexagon bolt DIN 933")
	assert.Empty(t, meta.PriceInfo)
}

func TestExtractPackaging(t *testing.T) {
	e := newTestExtractor()

	meta := e.Extract("DIN 934 M8 S200 verzinkt")
	assert.Equal(t, 200, meta.BoxQuantity)
	assert.Equal(t, "200 pcs", meta.PackagingUnit)

	meta = e.Extract("DIN 934 M8 lose")
	assert.Zero(t, meta.BoxQuantity)
	assert.Empty(t, meta.PackagingUnit)
}

func TestExtractEmptyInput(t *testing.T) {
	e := newTestExtractor()

	meta := e.Extract("")
	assert.Equal(t, ChunkMetadata{}, meta)

	// 无任何可识别记号的输入：全部字段缺省，置信度为零
	meta = e.Extract("Lieferbedingungen auf Anfrage")
	assert.Empty(t, meta.Standard)
	assert.Empty(t, meta.ThreadType)
	assert.Zero(t, meta.Confidence)
}

func TestDetectProductCategory(t *testing.T) {
	e := newTestExtractor()

	// 提示值可信，直接采用
	assert.Equal(t, ProductTypeNut, e.DetectProductCategory("irgendwas", ProductTypeNut))

	// 标准号结构化查找优先于关键词
	assert.Equal(t, ProductTypeWasher, e.DetectProductCategory("DIN 125 8,4", ""))
	assert.Equal(t, ProductTypeNut, e.DetectProductCategory("ISO 4032 M10", ""))

	// 关键词兜底
	assert.Equal(t, ProductTypeBolt, e.DetectProductCategory("hexagon bolt assortment", ""))

	// 任意输入兜底 other，不报错
	assert.Equal(t, ProductTypeOther, e.DetectProductCategory("Versandkosten", ""))
	assert.Equal(t, ProductTypeOther, e.DetectProductCategory("", ""))
}

func TestExtractStandardsList(t *testing.T) {
	e := newTestExtractor()

	meta := e.Extract("DIN 933 entspricht ISO 4017, vergleichbar DIN 931, DIN 933 Vollgewinde")

	require.NotEmpty(t, meta.Standards)
	// 首个出现作为 standard；列表去重且保持扫描顺序
	assert.Equal(t, "DIN 933", meta.Standard)
	assert.Equal(t, []string{"DIN933", "ISO4017", "DIN931"}, meta.Standards)
}

func TestExtractSupplier(t *testing.T) {
	e := newTestExtractor()

	assert.Equal(t, "wurth", e.Extract("Würth Katalog Seite 12").Supplier)
	assert.Equal(t, "wurth", e.Extract("WUERTH Sortiment").Supplier)
	assert.Equal(t, "bossard", e.Extract("Bossard Preisliste").Supplier)
	assert.Empty(t, e.Extract("DIN 933 M8x30").Supplier)
}
