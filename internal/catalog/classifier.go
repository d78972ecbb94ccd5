package catalog

import (
	"strings"
	"unicode/utf8"
)

// Classifier 对用户查询做属性提取与类型判定。提取原语与 Extractor
// 完全复用（螺纹/材料/产品类型），另加两个仅查询使用的提取器：
// 标准号检测与供应商名称检测。
type Classifier struct {
	kb *StandardsKB
}

// NewClassifier 创建一个持有标准知识库的查询分类器。
func NewClassifier(kb *StandardsKB) *Classifier {
	return &Classifier{kb: kb}
}

// supplierAliases 是有序的供应商别名表：别名 → 规范名。
// 变体写法（如 wuerth/würth）统一到同一规范名。
var supplierAliases = []struct {
	alias     string
	canonical string
}{
	{"würth", "wurth"},
	{"wuerth", "wurth"},
	{"wurth", "wurth"},
	{"bossard", "bossard"},
	{"fabory", "fabory"},
	{"reyher", "reyher"},
	{"fischer", "fischer"},
	{"hilti", "hilti"},
	{"keller & kalmbach", "keller-kalmbach"},
}

// detectSupplier 在文本中查找供应商别名（子串匹配，不分大小写），
// 返回规范名；没有命中返回空串。
func detectSupplier(text string) string {
	lower := strings.ToLower(text)
	for _, s := range supplierAliases {
		if strings.Contains(lower, s.alias) {
			return s.canonical
		}
	}
	return ""
}

// standardCodeQueryThreshold：移除标准号后剩余字符数低于该值时，
// 查询被视为纯标准号查询。
const standardCodeQueryThreshold = 10

// Classify 对原始查询串做属性提取并判定查询类型。调用方无须预先裁剪
// 空白，分类器自行 Trim。类型判定规则按优先级顺序求值，首个命中生效；
// 没有任何可识别记号的查询降级为 GENERAL，而不是报错。
func (c *Classifier) Classify(rawQuery string) QueryAnalysis {
	query := strings.TrimSpace(rawQuery)
	analysis := QueryAnalysis{Type: QueryTypeGeneral, Confidence: 0.5}
	if query == "" {
		return analysis
	}

	// 属性提取：无论类型判定是否用到，提取结果都原样携带
	standardRaw := ""
	if m := standardCodeRe.FindStringSubmatch(query); m != nil {
		standardRaw = m[0]
		analysis.ExtractedStandard = strings.ToUpper(m[1]) + m[2] + strings.ToUpper(m[3])
		analysis.ExtractedStandardDisplay = DisplayStandardCode(m[0])
	}
	if threads := extractThreads(query); len(threads) > 0 {
		analysis.ExtractedThread = threads[0]
	}
	for _, p := range materialPatterns {
		if p.predicate(query) {
			analysis.ExtractedMaterial = NormalizeMaterialCode(p.value)
			break
		}
	}
	for _, p := range categoryPatterns {
		if p.predicate(query) {
			analysis.ExtractedProductType = p.value
			break
		}
	}
	analysis.ExtractedSupplier = detectSupplier(query)

	hasStandard := analysis.ExtractedStandard != ""
	hasThread := analysis.ExtractedThread != ""
	hasMaterial := analysis.ExtractedMaterial != ""
	hasProductType := analysis.ExtractedProductType != ""
	hasSupplier := analysis.ExtractedSupplier != ""

	// 类型判定：首个命中的规则生效
	switch {
	case hasStandard && residualLen(query, standardRaw) < standardCodeQueryThreshold:
		analysis.Type = QueryTypeStandardCode
		analysis.Confidence = 0.95
		analysis.RequiresExactMatch = true
	case hasThread && !hasStandard && !hasProductType:
		analysis.Type = QueryTypeThreadSpec
		analysis.Confidence = 0.8
	case hasMaterial && !hasStandard && !hasThread:
		analysis.Type = QueryTypeMaterialSpec
		analysis.Confidence = 0.7
	case hasProductType && !hasStandard:
		analysis.Type = QueryTypeProductType
		analysis.Confidence = 0.7
	case hasSupplier && !hasStandard && !hasThread && !hasProductType:
		analysis.Type = QueryTypeSupplierName
		analysis.Confidence = 0.8
	case hasStandard && (hasThread || hasMaterial || hasProductType):
		analysis.Type = QueryTypeMixed
		analysis.Confidence = 0.85
		analysis.RequiresExactMatch = true
	default:
		analysis.Type = QueryTypeGeneral
		analysis.Confidence = 0.5
	}

	return analysis
}

// residualLen 返回从查询中移除标准号记号并裁剪空白后剩余的字符数。
func residualLen(query, standardToken string) int {
	residual := strings.Replace(query, standardToken, "", 1)
	return utf8.RuneCountInString(strings.TrimSpace(residual))
}
