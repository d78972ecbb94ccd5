package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStandardCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"DIN 933", "DIN933"},
		{"din933", "DIN933"},
		{"DIN-933", "DIN933"},
		{"iso 4017", "ISO4017"},
		{"EN 24017", "EN24017"},
		{"ANSI 18", "ANSI18"},
		{"DIN 933A", "DIN933A"},
		{"unbekannt 42", "UNBEKANNT42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStandardCode(tt.input), "input: %q", tt.input)
	}
}

func TestDisplayStandardCode(t *testing.T) {
	assert.Equal(t, "DIN 933", DisplayStandardCode("din933"))
	assert.Equal(t, "ISO 4017", DisplayStandardCode("ISO 4017"))
	assert.Equal(t, "DIN 933A", DisplayStandardCode("DIN933a"))
}

// 等价关系必须能通过显式反向条目双向查到。
func TestFindEquivalentStandards(t *testing.T) {
	kb := DefaultStandardsKB()

	assert.Contains(t, kb.FindEquivalentStandards("DIN 933"), "ISO4017")
	assert.Contains(t, kb.FindEquivalentStandards("ISO 4017"), "DIN933")
	assert.Contains(t, kb.FindEquivalentStandards("DIN 934"), "ISO4032")
	assert.Contains(t, kb.FindEquivalentStandards("ISO 7089"), "DIN125")
}

// 未知标准返回空结果而不是错误。
func TestFindEquivalentStandardsUnknown(t *testing.T) {
	kb := DefaultStandardsKB()

	assert.Empty(t, kb.FindEquivalentStandards("DIN 9999"))
	assert.Empty(t, kb.FindSimilarStandards("DIN 9999"))
	assert.Equal(t, "", kb.ProductTypeForStandard("DIN 9999"))

	_, ok := kb.Lookup("DIN 9999")
	assert.False(t, ok)
}

// similar 关系按源数据原样保存，不做对称推断。
func TestSimilarRelationsKeptAsymmetric(t *testing.T) {
	kb := DefaultStandardsKB()

	assert.Contains(t, kb.FindSimilarStandards("DIN 933"), "DIN931")
	assert.Contains(t, kb.FindSimilarStandards("ISO 4017"), "ISO4014")
	assert.Contains(t, kb.FindSimilarStandards("ISO 4017"), "DIN933")
	// DIN933 的 equivalent 仅有 ISO4017，不因 ISO4017.similar 含 DIN933 而扩充
	assert.Equal(t, []string{"ISO4017"}, kb.FindEquivalentStandards("DIN 933"))
}

func TestStandardsKBLookup(t *testing.T) {
	kb := DefaultStandardsKB()

	info, ok := kb.Lookup("din 912")
	require.True(t, ok)
	assert.Equal(t, ProductTypeScrew, info.ProductType)
	assert.Contains(t, info.Equivalent, "ISO4762")

	assert.Equal(t, ProductTypeNut, kb.ProductTypeForStandard("DIN 934"))
	assert.Equal(t, ProductTypeWasher, kb.ProductTypeForStandard("ISO7089"))
}

// 注入小表：关系表是注入的只读配置，测试可以使用替身。
func TestNewStandardsKBInjectedTable(t *testing.T) {
	kb := NewStandardsKB(map[string]StandardInfo{
		"din 1": {Equivalent: []string{"iso 2"}, ProductType: ProductTypeBolt},
	})

	assert.Equal(t, []string{"ISO2"}, kb.FindEquivalentStandards("DIN1"))
	assert.Equal(t, ProductTypeBolt, kb.ProductTypeForStandard("din 1"))
}
