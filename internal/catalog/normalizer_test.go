package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"空串", "", ""},
		{"纯空白", "   \t\n  ", ""},
		{"德语变音乱码", "SechskantschraubenÂ fÃ¼r StahltrÃ¤ger", "Sechskantschrauben für Stahlträger"},
		{"欧元符号乱码", "Preis: 25,50â‚¬ je S100", "Preis: 25,50€ je S100"},
		{"智能引号乱码", "â€œDIN 933â€“konformâ€™", "“DIN 933–konform’"},
		{"PDF 连字", "Proﬁl und ﬂache Scheibe", "Profil und flache Scheibe"},
		{"控制字符剔除", "DIN\x00 933\x07 M8\x1fx30", "DIN 933 M8x30"},
		{"保留换行与制表符", "DIN 933\nM8x30\tA2-70", "DIN 933\nM8x30\tA2-70"},
		{"首尾空白裁剪", "  DIN 933  ", "DIN 933"},
		{"正常文本原样保留", "Hexagon bolt DIN 933 M8x40 A2-70", "Hexagon bolt DIN 933 M8x40 A2-70"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

// 幂等性：对任意输入，二次规范化不再改变结果。
func TestNormalizeTextIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"SechskantschraubenÂ fÃ¼r StahltrÃ¤ger",
		"â€œquotedâ€™ text with â‚¬ and \x00control",
		"plain ASCII text DIN 933 M8x30",
		"ÃŸÃ¤Ã¶Ã¼ mixed ÃŸ mojibake",
		"  \twhitespace heavy\n\n ",
	}
	for _, in := range inputs {
		once := NormalizeText(in)
		assert.Equal(t, once, NormalizeText(once), "input: %q", in)
	}
}
