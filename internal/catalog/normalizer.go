package catalog

import (
	"strings"
	"unicode"
)

// mojibakeReplacer 修复已知的编码损坏序列：Latin-1 被错按 UTF-8 解码产生的
// 双字节伪字符、智能引号的乱码形式，以及 PDF 提取常见的私有区连字。
// 替换在一趟内完成，且所有替换结果都不会再命中任何替换键，因此整体幂等。
var mojibakeReplacer = strings.NewReplacer(
	// 德语变音与 ß（目录文本以德语供应商描述为主）
	"Ã¤", "ä",
	"Ã¶", "ö",
	"Ã¼", "ü",
	"Ã„", "Ä",
	"Ã–", "Ö",
	"Ãœ", "Ü",
	"ÃŸ", "ß",
	// 常见西欧字符
	"Ã©", "é",
	"Ã¨", "è",
	"Ã¡", "á",
	"Ã ", "à",
	"Ã§", "ç",
	// 货币与符号
	"â‚¬", "€",
	"Â°", "°",
	"Â±", "±",
	"Âµ", "µ",
	"Â ", " ",
	// 智能引号 / 破折号乱码
	"â€œ", "“",
	"â€™", "’",
	"â€˜", "‘",
	"â€“", "–",
	"â€”", "—",
	"â€¦", "…",
	// PDF 私有区连字
	"ﬁ", "fi",
	"ﬂ", "fl",
	"\uf0b7", "•",
	"\uf0a7", "■",
)

// NormalizeText 修复已知乱码、剔除空白以外的控制字符并裁剪首尾空白。
// 这是一个确定性的全函数：任意输入都有输出，且满足
// NormalizeText(NormalizeText(s)) == NormalizeText(s)。
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	repaired := mojibakeReplacer.Replace(text)

	var b strings.Builder
	b.Grow(len(repaired))
	for _, r := range repaired {
		// 保留制表符与换行，剔除其余控制字符（含 C1 区，乱码修复后可能残留）
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
