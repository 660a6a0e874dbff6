package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/shouni/go-web-research/pkg/patterns"
)

// ExtractPhone はHTMLから電話番号を抽出します。正規化・検証済みで、重複なしの昇順です。
func (e *Extractor) ExtractPhone(html string) []string {
	if e.emptyHTML(html) {
		return []string{}
	}
	return e.phonesFromText(scanText(html))
}

// ExtractFax はHTMLからFAXラベル直後の番号を抽出します。
func (e *Extractor) ExtractFax(html string) []string {
	if e.emptyHTML(html) {
		return []string{}
	}
	return e.faxesFromText(scanText(html))
}

func (e *Extractor) phonesFromText(text string) []string {
	found := make(map[string]struct{})
	for _, p := range e.lib.Phone {
		for _, m := range p.Re.FindAllStringSubmatch(text, -1) {
			if n := normalizePhone(firstGroup(m)); validatePhone(n) {
				found[n] = struct{}{}
			}
		}
	}
	return sortedKeys(found)
}

func (e *Extractor) faxesFromText(text string) []string {
	found := make(map[string]struct{})
	for _, p := range e.lib.Fax {
		for _, m := range p.Re.FindAllStringSubmatch(text, -1) {
			candidate := firstGroup(m)
			if n := normalizePhone(candidate); validatePhone(n) {
				found[n] = struct{}{}
			}
		}
	}
	return sortedKeys(found)
}

// normalizePhone は括弧 (半角・全角) と空白を除去します。数字とハイフンはそのまま残します。
func normalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '(' || r == ')' || r == '（' || r == '）':
			return -1
		case unicode.IsSpace(r):
			return -1
		}
		return r
	}, phone)
}

// validatePhone は正規化済みの番号が番号計画に沿っているかを検証します。
// ハイフンは区切りとして扱い、桁数は数字のみで数えます。
func validatePhone(phone string) bool {
	digits := strings.ReplaceAll(phone, "-", "")
	if digits == "" || digits[0] != '0' {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}

	n := len(digits)
	switch {
	case strings.HasPrefix(digits, "0120"), strings.HasPrefix(digits, "0800"):
		return n == 10
	case strings.HasPrefix(digits, "0570"):
		return n == 10
	case strings.HasPrefix(digits, "050"):
		return n == 11
	case strings.HasPrefix(digits, "070"), strings.HasPrefix(digits, "080"), strings.HasPrefix(digits, "090"):
		return n == 11
	default:
		return n == 10 || n == 11
	}
}

// firstGroup は最初の空でないキャプチャグループを返します。グループがなければ全体一致を返します。
func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if strings.TrimSpace(g) != "" {
			return g
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return ""
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// firstMatch は順に正規表現を試し、最初に一致したパターンのキャプチャを返します。
func firstMatch(text string, ps []patterns.Pattern) (string, bool) {
	for _, p := range ps {
		m := p.Re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if g := firstGroup(m); g != "" {
			return g, true
		}
	}
	return "", false
}
