package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shouni/go-web-research/pkg/types"
)

const (
	minStreetAddressLength = 5
	maxStreetAddressLength = 50
)

// decorativeBrackets は住所から取り除く括弧類です。
const decorativeBrackets = "「」『』【】[]()（）〈〉《》〔〕"

// ExtractAddress はHTMLから住所を抽出します。
// 郵便番号と都道府県のどちらも見つからない場合は nil を返します。
// 番地の取り出しは文字数の窓に基づく近似であり、境界の挙動は保証しません。
func (e *Extractor) ExtractAddress(html string) *types.Address {
	if e.emptyHTML(html) {
		return nil
	}
	return e.addressFromText(scanText(html))
}

func (e *Extractor) addressFromText(text string) *types.Address {
	postalCode := e.findPostalCode(text)
	prefecture, rest := e.findPrefecture(text)
	if postalCode == nil && prefecture == nil {
		e.logger.Debug("住所情報は見つかりませんでした")
		return nil
	}

	addr := &types.Address{
		PostalCode: postalCode,
		Prefecture: prefecture,
	}
	if prefecture != nil {
		addr.City = e.findCity(rest)
		addr.StreetAddress = e.findStreetAddress(rest)
	}
	return addr
}

func (e *Extractor) findPostalCode(text string) *string {
	m, ok := firstMatch(text, e.lib.PostalCode)
	if !ok {
		return nil
	}
	code := normalizePostalCode(m)
	if code == "" {
		return nil
	}
	return strPtr(code)
}

// normalizePostalCode は〒と空白を取り除き、7桁の数字であれば NNN-NNNN 形式に整えます。
func normalizePostalCode(s string) string {
	code := strings.Map(func(r rune) rune {
		if r == '〒' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if len(code) == 7 && isDigits(code) {
		return code[:3] + "-" + code[3:]
	}
	return code
}

// findPrefecture は最初に現れた都道府県名と、その直後から始まる残りのテキストを返します。
func (e *Extractor) findPrefecture(text string) (*string, string) {
	for _, p := range e.lib.Prefecture {
		loc := p.Re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		start, end := loc[0], loc[1]
		if len(loc) >= 4 && loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		return strPtr(text[start:end]), text[end:]
	}
	return nil, ""
}

func (e *Extractor) findCity(rest string) *string {
	city, ok := firstMatch(rest, e.lib.City)
	if !ok {
		return nil
	}
	return strPtr(city)
}

func (e *Extractor) findStreetAddress(rest string) *string {
	street, ok := firstMatch(rest, e.lib.StreetAddress)
	if !ok {
		return nil
	}
	street = strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune(decorativeBrackets, r) {
			return -1
		}
		return r
	}, street))

	n := utf8.RuneCountInString(street)
	if n < minStreetAddressLength || n > maxStreetAddressLength {
		return nil
	}
	return strPtr(street)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
