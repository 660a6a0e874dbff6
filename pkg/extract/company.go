package extract

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/kaptinlin/jsonrepair"
	textUtils "github.com/shouni/go-utils/text"
	"go.uber.org/zap"
)

const (
	jsonLDSelector      = `script[type="application/ld+json"]`
	ogSiteNameSelector  = `meta[property="og:site_name"]`
	maxHeadingNameRunes = 50
	searchHeadingWord   = "検索"
)

// titleSeparators はタイトルを切り詰める区切り文字です。先に見つかった種類を優先します。
var titleSeparators = []string{"|", "-", "–", "—", "/", "＜", "【"}

// companyStrategy は会社名を取り出す1つの手段です。見つからなければ false を返します。
type companyStrategy struct {
	name string
	find func(e *Extractor, doc *goquery.Document) (string, bool)
}

// companyStrategies は会社名のフォールバック順序です。
var companyStrategies = []companyStrategy{
	{"json-ld", (*Extractor).companyFromJSONLD},
	{"og:site_name", (*Extractor).companyFromOpenGraph},
	{"h1", (*Extractor).companyFromHeading},
	{"title", (*Extractor).companyFromTitle},
}

// ExtractCompanyName はHTMLから会社名・店舗名を抽出します。
// 構造化データ → og:site_name → h1 → title の順に試し、最初に得られた値を返します。
func (e *Extractor) ExtractCompanyName(html string) *string {
	if e.emptyHTML(html) {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("会社名抽出のためのHTML解析に失敗しました", zap.Error(err))
		return nil
	}

	for _, s := range companyStrategies {
		if name, ok := s.find(e, doc); ok {
			e.logger.Debug("会社名を抽出しました", zap.String("source", s.name), zap.String("name", name))
			return strPtr(name)
		}
	}
	e.logger.Debug("会社名は見つかりませんでした")
	return nil
}

func (e *Extractor) companyFromJSONLD(doc *goquery.Document) (string, bool) {
	var name string
	doc.Find(jsonLDSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		data, ok := e.parseJSONLD(s.Text())
		if !ok {
			return true
		}
		if n, found := findOrganizationName(data); found {
			name = n
			return false
		}
		return true
	})
	return name, name != ""
}

// parseJSONLD は構造化データを解析します。壊れたJSONは修復を試み、それでも失敗した場合はスキップします。
func (e *Extractor) parseJSONLD(raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		return data, true
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		e.logger.Debug("構造化データの修復に失敗しました", zap.Error(err))
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &data); err != nil {
		e.logger.Debug("構造化データの解析に失敗しました", zap.Error(err))
		return nil, false
	}
	return data, true
}

// findOrganizationName は単一オブジェクト・配列・@graph から最初の name または legalName を探します。
func findOrganizationName(data any) (string, bool) {
	switch v := data.(type) {
	case map[string]any:
		for _, key := range []string{"name", "legalName"} {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
		if graph, ok := v["@graph"]; ok {
			return findOrganizationName(graph)
		}
	case []any:
		for _, item := range v {
			if name, ok := findOrganizationName(item); ok {
				return name, true
			}
		}
	}
	return "", false
}

func (e *Extractor) companyFromOpenGraph(doc *goquery.Document) (string, bool) {
	content, ok := doc.Find(ogSiteNameSelector).First().Attr("content")
	if !ok {
		return "", false
	}
	content = strings.TrimSpace(content)
	return content, content != ""
}

// companyFromHeading は最初の h1 を採用します。長すぎる見出しや検索ボックスの見出しは除外します。
func (e *Extractor) companyFromHeading(doc *goquery.Document) (string, bool) {
	h1 := doc.Find("h1").First()
	if h1.Length() == 0 {
		return "", false
	}
	text := strings.TrimSpace(textUtils.NormalizeText(h1.Text()))
	if text == "" || utf8.RuneCountInString(text) >= maxHeadingNameRunes || strings.Contains(text, searchHeadingWord) {
		return "", false
	}
	return text, true
}

func (e *Extractor) companyFromTitle(doc *goquery.Document) (string, bool) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx >= 0 {
			title = title[:idx]
			break
		}
	}
	title = strings.TrimSpace(title)
	return title, title != ""
}
