package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/width"
)

// NormalizeHTML はHTMLからタグを除去したプレーンテキストを返します。
// script と style の中身は丸ごと除外し、改行を含む連続した空白は半角スペース1つにまとめます。
// 解析に失敗した場合は入力をそのまま返します。
func NormalizeHTML(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseSpaces(strings.Join(parts, " "))
}

// collapseSpaces は全角スペースを含む空白の連続を半角スペース1つにまとめ、前後を除去します。
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// scanText は正規表現による走査用のテキストを作成します。
// 全角の英数字や記号は半角に畳み込みます (半角カナは全角へ)。
func scanText(raw string) string {
	return width.Fold.String(NormalizeHTML(raw))
}
