package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Extractor 从规范化后的目录文本中提取结构化属性。
// 所有模式表都是有序的 (判定, 取值) 对：按顺序求值，首个命中即生效，
// 保证歧义输入的解析结果确定且可测试。
type Extractor struct {
	kb *StandardsKB
}

// NewExtractor 创建一个持有标准知识库的提取器。
func NewExtractor(kb *StandardsKB) *Extractor {
	return &Extractor{kb: kb}
}

// patternEntry 是有序模式表中的一项：predicate 命中即取 value。
type patternEntry struct {
	predicate func(string) bool
	value     string
}

func rePredicate(expr string) func(string) bool {
	re := regexp.MustCompile(expr)
	return re.MatchString
}

// descriptionPatterns 匹配产品描述短语，命中给出展示名与产品类型的弱信号。
var descriptionPatterns = []struct {
	re          *regexp.Regexp
	name        string
	productType string
}{
	{regexp.MustCompile(`(?i)hexagon\s+head\s+(bolt|screw)s?`), "Hexagon head bolt", ProductTypeBolt},
	{regexp.MustCompile(`(?i)hexagon\s+\w+\s+bolts?`), "Hexagon bolt", ProductTypeBolt},
	{regexp.MustCompile(`(?i)socket\s+head\s+cap\s+screws?`), "Socket head cap screw", ProductTypeScrew},
	{regexp.MustCompile(`(?i)countersunk\s+\w*\s*screws?`), "Countersunk screw", ProductTypeScrew},
	{regexp.MustCompile(`(?i)hex(agon)?\s+nuts?`), "Hexagon nut", ProductTypeNut},
	{regexp.MustCompile(`(?i)lock\s*nuts?`), "Lock nut", ProductTypeNut},
	{regexp.MustCompile(`(?i)(flat|plain)\s+washers?`), "Flat washer", ProductTypeWasher},
	{regexp.MustCompile(`(?i)spring\s+washers?`), "Spring washer", ProductTypeWasher},
	{regexp.MustCompile(`(?i)threaded\s+(rod|stud)s?`), "Threaded stud", ProductTypeStud},
	{regexp.MustCompile(`(?i)sechskantschrauben?`), "Sechskantschraube", ProductTypeBolt},
	{regexp.MustCompile(`(?i)sechskantmuttern?`), "Sechskantmutter", ProductTypeNut},
	{regexp.MustCompile(`(?i)zylinderschrauben?`), "Zylinderschraube", ProductTypeScrew},
	{regexp.MustCompile(`(?i)senkschrauben?`), "Senkschraube", ProductTypeScrew},
	{regexp.MustCompile(`(?i)unterlegscheiben?`), "Unterlegscheibe", ProductTypeWasher},
}

// categoryPatterns 是产品类型判定表。顺序即优先级：bolt 在 screw 之前，
// 避免 "hexagon bolt screw kit" 这类文本被后面较弱的模式改写。
var categoryPatterns = []patternEntry{
	{rePredicate(`(?i)\bbolts?\b|sechskantschraube|schlossschraube`), ProductTypeBolt},
	{rePredicate(`(?i)\bnuts?\b|mutter`), ProductTypeNut},
	{rePredicate(`(?i)\bwashers?\b|scheibe|federring`), ProductTypeWasher},
	{rePredicate(`(?i)\bscrews?\b|schraube`), ProductTypeScrew},
	{rePredicate(`(?i)\bstuds?\b|gewindebolzen|gewindestange|stiftschraube`), ProductTypeStud},
	{rePredicate(`(?i)\banchors?\b|dübel`), ProductTypeAnchor},
	{rePredicate(`(?i)\brivets?\b|\bniete?n?\b`), ProductTypeRivet},
}

var threadRe = regexp.MustCompile(`(?i)\bM\s?(\d{1,3}(?:[.,]\d{1,2})?)(?:\s*[x×]\s*(\d{1,4}(?:[.,]\d{1,2})?))?\b`)

// materialPatterns 是材料判定表，键为原始记号，值为规范代号。
// zinc 用函数判定：后接 plated/coated 时属于表面处理词汇，不算材料。
var materialPatterns = []patternEntry{
	{rePredicate(`(?i)\bA2[-\s]?70\b`), "A2-70"},
	{rePredicate(`(?i)\bA4[-\s]?80\b`), "A4-80"},
	{rePredicate(`(?i)\bA2\b`), "A2-70"},
	{rePredicate(`(?i)\b304\b`), "A2-70"},
	{rePredicate(`(?i)\bA4\b`), "A4-80"},
	{rePredicate(`(?i)\b316\b`), "A4-80"},
	{rePredicate(`(?i)\b12\.9\b`), "12.9"},
	{rePredicate(`(?i)\b10\.9\b`), "10.9"},
	{rePredicate(`(?i)\b8\.8\b`), "8.8"},
	{rePredicate(`(?i)\bbrass\b|messing`), "BRASS"},
	{zincMaterial, "ZINC"},
}

var zincWordRe = regexp.MustCompile(`(?i)\bzinc\b(\s*[- ]?\s*(plated|plating|coated|coating|flake))?`)

func zincMaterial(text string) bool {
	for _, m := range zincWordRe.FindAllStringSubmatch(text, -1) {
		if m[1] == "" {
			return true
		}
	}
	return false
}

// materialAliases 把任意别名映射到每一类材料的唯一规范代号。
var materialAliases = map[string]string{
	"A2":      "A2-70",
	"A2-70":   "A2-70",
	"304":     "A2-70",
	"A4":      "A4-80",
	"A4-80":   "A4-80",
	"316":     "A4-80",
	"8.8":     "8.8",
	"88":      "8.8",
	"10.9":    "10.9",
	"109":     "10.9",
	"12.9":    "12.9",
	"129":     "12.9",
	"BRASS":   "BRASS",
	"MESSING": "BRASS",
	"ZINC":    "ZINC",
}

// NormalizeMaterialCode 把材料别名规范化为唯一代号（如 A2 与 304 都得到
// A2-70）。规范化是幂等的；未知输入转大写后原样透传，不报错。
func NormalizeMaterialCode(raw string) string {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if canonical, ok := materialAliases[key]; ok {
		return canonical
	}
	return key
}

// finishPatterns 是表面处理判定表，词汇与材料表互不重叠。
// hot-dip 在 zinc-plated 之前：热浸镀锌文本通常也包含 galvanized。
var finishPatterns = []patternEntry{
	{rePredicate(`(?i)hot[-\s]?dip|feuerverzinkt|\btzn\b`), FinishHotDipGalvanized},
	{rePredicate(`(?i)zinc[-\s]?plated|galvaniz(ed|ing)|galvanisch\s+verzinkt|\bverzinkt\b`), FinishZincPlated},
	{rePredicate(`(?i)black[-\s]?oxide|brüniert|geschwärzt`), FinishBlackOxide},
	{rePredicate(`(?i)passivat(ed|ion)|passiviert`), FinishPassivated},
	{rePredicate(`(?i)\bplain\b|\bblank\b|self[-\s]?colou?r`), FinishPlain},
}

// headTypePatterns 按头型词汇以及蕴含头型的知名标准号判定。
// DIN 933/931 与 ISO 4017/4014 都是六角头，DIN 912/ISO 4762 是内六角圆柱头。
var headTypePatterns = []patternEntry{
	{rePredicate(`(?i)hex(agon)?\b|sechskant\b|sechskantschraube|sechskantmutter|\bDIN\s*93[134]\b|\bISO\s*40(14|17|32)\b`), HeadTypeHex},
	{rePredicate(`(?i)socket|innensechskant|\ballen\b|zylinderschraube|\bDIN\s*912\b|\bDIN\s*7984\b|\bISO\s*4762\b`), HeadTypeSocket},
	{rePredicate(`(?i)countersunk|senkkopf|senkschraube|\bDIN\s*7991\b|\bDIN\s*963\b|\bISO\s*10642\b`), HeadTypeCountersunk},
	{rePredicate(`(?i)button\s*head|linsenkopf|\bISO\s*7380\b`), HeadTypeButton},
	{rePredicate(`(?i)pan\s*head|flachkopf`), HeadTypePan},
	{rePredicate(`(?i)flange[d]?\s*(head|bolt|nut)?|flansch|\bDIN\s*6921\b`), HeadTypeFlange},
}

var (
	priceRe     = regexp.MustCompile(`\b\d{1,6}[.,]\d{2}\b`)
	packagingRe = regexp.MustCompile(`\bS(\d{1,6})\b`)
)

const maxThreadSizes = 10

// Extract 对一段规范化文本运行全部提取步骤并返回属性记录。
// 各步骤彼此独立：任何一步提取不到只会让对应字段缺省，绝不会使
// 整条记录失败。对同一输入重复调用结果完全一致。
func (e *Extractor) Extract(text string) ChunkMetadata {
	meta := ChunkMetadata{}
	if strings.TrimSpace(text) == "" {
		return meta
	}

	// 1. 描述短语：首个命中给出展示名，并作为产品类型的弱信号
	descType := ""
	for _, p := range descriptionPatterns {
		if p.re.MatchString(text) {
			meta.ProductName = p.name
			descType = p.productType
			break
		}
	}

	// 2. 产品类型：有序类别表，首个命中即停，不被后续较弱匹配覆盖
	for _, p := range categoryPatterns {
		if p.predicate(text) {
			meta.ProductType = p.value
			break
		}
	}
	if meta.ProductType == "" && descType != "" {
		meta.ProductType = descType
	}

	// 3/4. 螺纹：首个出现作为 threadType；全部去重后（最多 10 个）拼为尺寸串
	threads := extractThreads(text)
	if len(threads) > 0 {
		meta.ThreadType = threads[0]
		meta.Dimensions = strings.Join(threads, ", ")
	}

	// 5. 材料：有序别名表，首个命中再做规范化
	for _, p := range materialPatterns {
		if p.predicate(text) {
			meta.Material = NormalizeMaterialCode(p.value)
			break
		}
	}

	// 6. 表面处理
	for _, p := range finishPatterns {
		if p.predicate(text) {
			meta.Finish = p.value
			break
		}
	}

	// 7. 头型（词汇或标准号蕴含）
	for _, p := range headTypePatterns {
		if p.predicate(text) {
			meta.HeadType = p.value
			break
		}
	}

	// 8. 标准号：扫描全部出现，首个作为 standard（展示形式），
	// 完整有序列表保留用于关键词索引
	codes := extractStandardCodes(text)
	if len(codes) > 0 {
		meta.Standard = DisplayStandardCode(codes[0])
		meta.Standards = codes
		// 9. 等价标准：未知标准得到空列表，而不是错误
		meta.EquivalentStandards = e.kb.FindEquivalentStandards(codes[0])
	}

	// 10. 价格区间：逗号小数统一为点，有命中才生成 priceInfo
	if min, max, ok := extractPriceRange(text); ok {
		meta.PriceInfo = fmt.Sprintf("€%.2f - €%.2f", min, max)
	}

	// 11. 包装：S<数量> 记号
	if m := packagingRe.FindStringSubmatch(text); m != nil {
		if qty, err := strconv.Atoi(m[1]); err == nil && qty > 0 {
			meta.BoxQuantity = qty
			meta.PackagingUnit = fmt.Sprintf("%d pcs", qty)
		}
	}

	// 供应商名称（与查询分类器共用别名表）
	if s := detectSupplier(text); s != "" {
		meta.Supplier = s
	}

	// 12. 类别（独立辅助判定，带产品类型提示）
	meta.Category = e.DetectProductCategory(text, meta.ProductType)

	// 13. 置信度：每个成功提取的信号累加固定权重，截断到 [0,1]
	meta.Confidence = confidenceOf(meta)

	return meta
}

// DetectProductCategory 推断文本的产品类别。提示值可信则直接采用；
// 否则优先按标准号的结构化表查找，再退回关键词匹配，最后兜底 other。
// 对任意输入都不会出错。
func (e *Extractor) DetectProductCategory(text, productTypeHint string) string {
	if productTypeHint != "" {
		return productTypeHint
	}
	if codes := extractStandardCodes(text); len(codes) > 0 {
		if pt := e.kb.ProductTypeForStandard(codes[0]); pt != "" {
			return pt
		}
	}
	for _, p := range categoryPatterns {
		if p.predicate(text) {
			return p.value
		}
	}
	return ProductTypeOther
}

// extractThreads 返回文本中全部去重后的规范化螺纹记号，保持首见顺序，
// 上限 maxThreadSizes 个。
func extractThreads(text string) []string {
	matches := threadRe.FindAllStringSubmatch(text, -1)
	if matches == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	threads := make([]string, 0, len(matches))
	for _, m := range matches {
		t := normalizeThread(m[1], m[2])
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		threads = append(threads, t)
		if len(threads) == maxThreadSizes {
			break
		}
	}
	return threads
}

// normalizeThread 生成大写、无空格、x 统一为 X 的螺纹记号，如 "M8X40"。
func normalizeThread(diameter, length string) string {
	t := "M" + strings.ReplaceAll(diameter, ",", ".")
	if length != "" {
		t += "X" + strings.ReplaceAll(length, ",", ".")
	}
	return t
}

// extractStandardCodes 按扫描顺序返回文本中全部去重后的规范化标准号。
func extractStandardCodes(text string) []string {
	matches := standardCodeRe.FindAllStringSubmatch(text, -1)
	if matches == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		code := strings.ToUpper(m[1]) + m[2] + strings.ToUpper(m[3])
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// extractPriceRange 收集全部价格记号（逗号小数转为点）并返回最小/最大值。
// 没有命中时第三个返回值为 false。
func extractPriceRange(text string) (float64, float64, bool) {
	matches := priceRe.FindAllString(text, -1)
	if matches == nil {
		return 0, 0, false
	}
	prices := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
		if err != nil {
			continue
		}
		prices = append(prices, v)
	}
	if len(prices) == 0 {
		return 0, 0, false
	}
	sort.Float64s(prices)
	return prices[0], prices[len(prices)-1], true
}

// 置信度权重：信号越强权重越高，全部命中时恰为 1.0。
const (
	confidenceStandard  = 0.30
	confidenceThread    = 0.25
	confidenceMaterial  = 0.20
	confidencePackaging = 0.15
	confidencePrice     = 0.10
)

func confidenceOf(meta ChunkMetadata) float64 {
	c := 0.0
	if meta.Standard != "" {
		c += confidenceStandard
	}
	if meta.ThreadType != "" {
		c += confidenceThread
	}
	if meta.Material != "" {
		c += confidenceMaterial
	}
	if meta.BoxQuantity > 0 {
		c += confidencePackaging
	}
	if meta.PriceInfo != "" {
		c += confidencePrice
	}
	if c > 1 {
		c = 1
	}
	return c
}
