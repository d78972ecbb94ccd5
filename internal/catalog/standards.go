package catalog

import (
	"regexp"
	"strings"
)

// StandardInfo 描述一条紧固件标准及其关系。
// Equivalent 指不同标准体系中规定同一零件的标准（DIN↔ISO 协调），
// Similar 指外观或功能相近但实际是不同零件的标准。
type StandardInfo struct {
	Equivalent  []string
	Similar     []string
	ProductType string
	Description string
}

// StandardsKB 是只读的标准知识库，进程启动时构建一次，此后不再修改，
// 因此可以被任意协程并发读取。关系按表内原样保存，不做对称推断：
// 部分 similar 关系在源数据中就是非对称的，反向关系需由显式条目给出。
type StandardsKB struct {
	entries map[string]StandardInfo
}

// NewStandardsKB 用给定的关系表构建知识库。键与关系值都会被规范化，
// 便于测试时注入小表。
func NewStandardsKB(entries map[string]StandardInfo) *StandardsKB {
	normalized := make(map[string]StandardInfo, len(entries))
	for code, info := range entries {
		normalized[NormalizeStandardCode(code)] = StandardInfo{
			Equivalent:  normalizeCodes(info.Equivalent),
			Similar:     normalizeCodes(info.Similar),
			ProductType: info.ProductType,
			Description: info.Description,
		}
	}
	return &StandardsKB{entries: normalized}
}

// DefaultStandardsKB 返回内置的 DIN/ISO/EN/ANSI 关系表。
func DefaultStandardsKB() *StandardsKB {
	return NewStandardsKB(defaultStandardRelationships)
}

// defaultStandardRelationships 是内置关系表。注意 similar 关系保持源数据
// 中的非对称形式：例如 ISO4017 的 similar 列出 ISO4014 与 DIN933，而
// DIN933 的 equivalent 仅有 ISO4017。
var defaultStandardRelationships = map[string]StandardInfo{
	"DIN933": {
		Equivalent:  []string{"ISO4017"},
		Similar:     []string{"DIN931"},
		ProductType: ProductTypeBolt,
		Description: "Sechskantschraube mit Gewinde bis Kopf (Vollgewinde)",
	},
	"ISO4017": {
		Equivalent:  []string{"DIN933", "EN24017"},
		Similar:     []string{"ISO4014", "DIN933"},
		ProductType: ProductTypeBolt,
		Description: "Hexagon head screws, full thread",
	},
	"EN24017": {
		Equivalent:  []string{"ISO4017"},
		ProductType: ProductTypeBolt,
		Description: "Hexagon head screws, full thread (superseded by ISO 4017)",
	},
	"DIN931": {
		Equivalent:  []string{"ISO4014"},
		Similar:     []string{"DIN933"},
		ProductType: ProductTypeBolt,
		Description: "Sechskantschraube mit Schaft (Teilgewinde)",
	},
	"ISO4014": {
		Equivalent:  []string{"DIN931"},
		Similar:     []string{"ISO4017"},
		ProductType: ProductTypeBolt,
		Description: "Hexagon head bolts, partial thread",
	},
	"DIN912": {
		Equivalent:  []string{"ISO4762"},
		Similar:     []string{"DIN7984"},
		ProductType: ProductTypeScrew,
		Description: "Zylinderschraube mit Innensechskant",
	},
	"ISO4762": {
		Equivalent:  []string{"DIN912"},
		ProductType: ProductTypeScrew,
		Description: "Hexagon socket head cap screws",
	},
	"DIN7984": {
		Similar:     []string{"DIN912"},
		ProductType: ProductTypeScrew,
		Description: "Zylinderschraube mit Innensechskant, niedriger Kopf",
	},
	"DIN7991": {
		Equivalent:  []string{"ISO10642"},
		ProductType: ProductTypeScrew,
		Description: "Senkschraube mit Innensechskant",
	},
	"ISO10642": {
		Equivalent:  []string{"DIN7991"},
		ProductType: ProductTypeScrew,
		Description: "Hexagon socket countersunk head screws",
	},
	"DIN934": {
		Equivalent:  []string{"ISO4032"},
		Similar:     []string{"DIN985"},
		ProductType: ProductTypeNut,
		Description: "Sechskantmutter",
	},
	"ISO4032": {
		Equivalent:  []string{"DIN934"},
		ProductType: ProductTypeNut,
		Description: "Hexagon regular nuts, style 1",
	},
	"DIN985": {
		Equivalent:  []string{"ISO10511"},
		Similar:     []string{"DIN934"},
		ProductType: ProductTypeNut,
		Description: "Sechskantmutter mit Klemmteil (nicht metallischer Einsatz)",
	},
	"ISO10511": {
		Equivalent:  []string{"DIN985"},
		ProductType: ProductTypeNut,
		Description: "Prevailing torque type hexagon thin nuts",
	},
	"DIN125": {
		Equivalent:  []string{"ISO7089"},
		Similar:     []string{"DIN9021", "DIN127"},
		ProductType: ProductTypeWasher,
		Description: "Unterlegscheibe, Produktklasse A",
	},
	"ISO7089": {
		Equivalent:  []string{"DIN125"},
		ProductType: ProductTypeWasher,
		Description: "Plain washers, normal series",
	},
	"DIN9021": {
		Equivalent:  []string{"ISO7093"},
		Similar:     []string{"DIN125"},
		ProductType: ProductTypeWasher,
		Description: "Scheibe, Außendurchmesser ca. 3 x Gewindedurchmesser",
	},
	"ISO7093": {
		Equivalent:  []string{"DIN9021"},
		ProductType: ProductTypeWasher,
		Description: "Plain washers, large series",
	},
	"DIN127": {
		Similar:     []string{"DIN125"},
		ProductType: ProductTypeWasher,
		Description: "Federring",
	},
	"DIN976": {
		Equivalent:  []string{"DIN975"},
		ProductType: ProductTypeStud,
		Description: "Gewindebolzen",
	},
	"DIN975": {
		Equivalent:  []string{"DIN976"},
		ProductType: ProductTypeStud,
		Description: "Gewindestangen",
	},
	"DIN603": {
		ProductType: ProductTypeBolt,
		Description: "Flachrundschraube mit Vierkantansatz (Schlossschraube)",
	},
	"ANSIB18": {
		Similar:     []string{"DIN933"},
		ProductType: ProductTypeBolt,
		Description: "Hex cap screws (inch series)",
	},
}

var standardCodeRe = regexp.MustCompile(`(?i)\b(DIN|ISO|EN|ANSI)\s*[-.]?\s*(\d{1,5})([A-Za-z]?)\b`)

// NormalizeStandardCode 把任意写法的标准号规范化为无空格大写形式，
// 例如 "din 933"、"DIN-933"、"DIN 933" 都得到 "DIN933"。
// 无法识别的输入去空格转大写后原样返回。
func NormalizeStandardCode(code string) string {
	m := standardCodeRe.FindStringSubmatch(code)
	if m == nil {
		return strings.ToUpper(strings.Join(strings.Fields(code), ""))
	}
	return strings.ToUpper(m[1]) + m[2] + strings.ToUpper(m[3])
}

// DisplayStandardCode 把标准号规范化为展示形式，例如 "din933" → "DIN 933"。
func DisplayStandardCode(code string) string {
	m := standardCodeRe.FindStringSubmatch(code)
	if m == nil {
		return strings.TrimSpace(code)
	}
	display := strings.ToUpper(m[1]) + " " + m[2]
	if m[3] != "" {
		display += strings.ToUpper(m[3])
	}
	return display
}

// Lookup 按规范化后的标准号查找条目。未知标准返回零值与 false，不报错。
func (kb *StandardsKB) Lookup(code string) (StandardInfo, bool) {
	info, ok := kb.entries[NormalizeStandardCode(code)]
	return info, ok
}

// FindEquivalentStandards 返回与给定标准等价的规范化标准号列表。
// 未知标准返回空列表。
func (kb *StandardsKB) FindEquivalentStandards(code string) []string {
	info, ok := kb.Lookup(code)
	if !ok {
		return []string{}
	}
	return append([]string{}, info.Equivalent...)
}

// FindSimilarStandards 返回与给定标准相近（但并非同一零件）的标准号列表。
func (kb *StandardsKB) FindSimilarStandards(code string) []string {
	info, ok := kb.Lookup(code)
	if !ok {
		return []string{}
	}
	return append([]string{}, info.Similar...)
}

// ProductTypeForStandard 返回标准号蕴含的产品类型，未知标准返回空串。
func (kb *StandardsKB) ProductTypeForStandard(code string) string {
	info, ok := kb.Lookup(code)
	if !ok {
		return ""
	}
	return info.ProductType
}

func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, NormalizeStandardCode(c))
	}
	return out
}
