package extract

import (
	"go.uber.org/zap"
)

// ExtractSocialLinks は生HTMLからSNSへのリンクを抽出します。
// リンクは href 属性にしか現れないことがあるため、タグは除去しません。
// 一致が1件もないSNSは結果に含めません。
func (e *Extractor) ExtractSocialLinks(html string) map[string][]string {
	links := make(map[string][]string)
	if e.emptyHTML(html) {
		return links
	}

	for _, p := range e.lib.SNS {
		seen := make(map[string]struct{})
		var urls []string
		for _, m := range p.Re.FindAllString(html, -1) {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			urls = append(urls, m)
		}
		if len(urls) > 0 {
			links[p.Tag] = urls
		}
	}

	e.logger.Debug("SNSリンクを抽出しました", zap.Int("networks", len(links)))
	return links
}
