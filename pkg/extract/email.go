package extract

import (
	"strings"
)

// imageExtensions に一致する末尾を持つ候補は、属性値中のファイル名とみなして除外します。
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg"}

// ExtractEmail はHTMLからメールアドレスを抽出します。小文字化済みで、重複なしの昇順です。
func (e *Extractor) ExtractEmail(html string) []string {
	if e.emptyHTML(html) {
		return []string{}
	}
	return e.emailsFromText(scanText(html))
}

func (e *Extractor) emailsFromText(text string) []string {
	found := make(map[string]struct{})
	for _, p := range e.lib.Email {
		for _, m := range p.Re.FindAllString(text, -1) {
			normalized := strings.ToLower(strings.TrimSpace(m))
			if validateEmail(normalized) {
				found[normalized] = struct{}{}
			}
		}
	}
	return sortedKeys(found)
}

func validateEmail(email string) bool {
	if !strings.Contains(email, "@") {
		return false
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(email, ext) {
			return false
		}
	}
	return true
}
