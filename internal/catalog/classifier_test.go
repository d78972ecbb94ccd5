package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultStandardsKB())
}

// 分类优先级：纯标准号查询。
func TestClassifyStandardCode(t *testing.T) {
	c := newTestClassifier()
	for _, query := range []string{"DIN 933", "din933", "  DIN 933  ", "ISO 4017"} {
		analysis := c.Classify(query)

		assert.Equal(t, QueryTypeStandardCode, analysis.Type, "query: %q", query)
		assert.Equal(t, 0.95, analysis.Confidence)
		assert.True(t, analysis.RequiresExactMatch)
	}

	analysis := c.Classify("DIN 933")
	assert.Equal(t, "DIN933", analysis.ExtractedStandard)
	assert.Equal(t, "DIN 933", analysis.ExtractedStandardDisplay)
}

func TestClassifyQueryTypes(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		name           string
		query          string
		wantType       QueryType
		wantConfidence float64
		wantExact      bool
	}{
		{"纯螺纹", "M8x40", QueryTypeThreadSpec, 0.8, false},
		{"纯材料", "A2-70", QueryTypeMaterialSpec, 0.7, false},
		{"纯产品类型", "hexagon bolts", QueryTypeProductType, 0.7, false},
		{"供应商", "Würth Katalog Sortiment", QueryTypeSupplierName, 0.8, false},
		{"标准加长描述", "DIN 933 Sechskantschrauben verzinkt M8x30 Vollgewinde", QueryTypeMixed, 0.85, true},
		{"通用", "Lieferzeit und Versandkosten", QueryTypeGeneral, 0.5, false},
		{"空查询", "   ", QueryTypeGeneral, 0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := c.Classify(tt.query)
			assert.Equal(t, tt.wantType, analysis.Type)
			assert.Equal(t, tt.wantConfidence, analysis.Confidence)
			assert.Equal(t, tt.wantExact, analysis.RequiresExactMatch)
		})
	}
}

// 残余字符阈值：标准号 + 少量残余仍是 STANDARD_CODE，
// 残余较长则按组合属性降级为 MIXED。
func TestClassifyResidualThreshold(t *testing.T) {
	c := newTestClassifier()

	short := c.Classify("DIN 933 M8x30")
	assert.Equal(t, QueryTypeStandardCode, short.Type)

	long := c.Classify("DIN 933 Sechskantschrauben mit Vollgewinde verzinkt M8x30")
	assert.Equal(t, QueryTypeMixed, long.Type)
	assert.True(t, long.RequiresExactMatch)
}

// 提取结果总是完整携带，即便类型判定没有用到。
func TestClassifyCarriesAllExtractions(t *testing.T) {
	c := newTestClassifier()

	analysis := c.Classify("Würth Sechskantschraube DIN 933 M8x30 A2 verzinkt")

	assert.Equal(t, QueryTypeMixed, analysis.Type)
	assert.Equal(t, "DIN933", analysis.ExtractedStandard)
	assert.Equal(t, "M8X30", analysis.ExtractedThread)
	assert.Equal(t, "A2-70", analysis.ExtractedMaterial)
	assert.NotEmpty(t, analysis.ExtractedProductType)
	assert.Equal(t, "wurth", analysis.ExtractedSupplier)
}

func TestClassifySupplierCanonicalization(t *testing.T) {
	c := newTestClassifier()

	assert.Equal(t, "wurth", c.Classify("wuerth Teileliste Sortiment").ExtractedSupplier)
	assert.Equal(t, "wurth", c.Classify("WÜRTH Teileliste Sortiment").ExtractedSupplier)
}

// 同一查询串分类两次结果一致（纯函数，无内部状态）。
func TestClassifyDeterministic(t *testing.T) {
	c := newTestClassifier()
	q := "DIN 931 M12x80 8.8 feuerverzinkt"

	assert.Equal(t, c.Classify(q), c.Classify(q))
}
