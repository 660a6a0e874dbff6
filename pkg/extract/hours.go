package extract

import (
	"strings"

	"github.com/shouni/go-web-research/pkg/patterns"
)

const (
	MaxBusinessHoursLength = 100
	MaxClosedDaysLength    = 50

	// truncationMarker は切り詰めた結果の末尾に付与する記号です (上限の文字数に含みます)。
	truncationMarker = "…"
)

// ExtractBusinessHours はHTMLから営業時間を抽出します。
func (e *Extractor) ExtractBusinessHours(html string) *string {
	if e.emptyHTML(html) {
		return nil
	}
	return e.firstLabeledMatch(scanText(html), e.lib.BusinessHours, MaxBusinessHoursLength)
}

// ExtractClosedDays はHTMLから定休日を抽出します。
func (e *Extractor) ExtractClosedDays(html string) *string {
	if e.emptyHTML(html) {
		return nil
	}
	return e.firstLabeledMatch(scanText(html), e.lib.ClosedDays, MaxClosedDaysLength)
}

// firstLabeledMatch はラベル付きパターンを順に試し、最初の一致を maxRunes 文字以内に収めて返します。
func (e *Extractor) firstLabeledMatch(text string, ps []patterns.Pattern, maxRunes int) *string {
	m, ok := firstMatch(text, ps)
	if !ok {
		return nil
	}
	m = strings.TrimSpace(m)
	if m == "" {
		return nil
	}
	return strPtr(truncate(m, maxRunes))
}

// truncate は maxRunes 文字を超える文字列を切り詰め、末尾に truncationMarker を付与します。
func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	marker := []rune(truncationMarker)
	return string(runes[:maxRunes-len(marker)]) + truncationMarker
}
