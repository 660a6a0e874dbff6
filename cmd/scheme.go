package cmd

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// ensureScheme は、URLのスキームが存在しない場合に https:// を補完します。
// 既にスキームが存在する場合は、それが http または https であるかをチェックします。
func ensureScheme(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", eris.New("URLが指定されていません")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "URLのパースエラー")
	}

	if parsedURL.Scheme != "" {
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return "", eris.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %s", rawURL)
		}
		return rawURL, nil
	}

	return "https://" + rawURL, nil
}
