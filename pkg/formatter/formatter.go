// Package formatter は、検索結果と詳細情報の統合、重複除去、検証を行います。
// すべての関数は入力を変更せず、新しいスライスを返します。
package formatter

import (
	"sort"
	"strings"

	"github.com/shouni/go-web-research/pkg/types"
)

// joinSeparator は複数値を1つのセルにまとめる際の区切り文字です。
const joinSeparator = ", "

// FormatData は検索結果と詳細情報をインデックスで対応付け、出力行に変換します。
// details[i] が存在しない (範囲外または nil) 場合、詳細項目はすべて空文字列になります。
func FormatData(items []types.SearchResultItem, details []*types.ExtractionRecord) []types.OutputRow {
	rows := make([]types.OutputRow, 0, len(items))
	for i, item := range items {
		row := types.OutputRow{
			Rank:        item.Rank,
			Title:       item.Title,
			URL:         item.URL,
			Description: item.Description,
		}
		if i < len(details) && details[i] != nil {
			applyDetail(&row, details[i])
		}
		rows = append(rows, row)
	}
	return rows
}

func applyDetail(row *types.OutputRow, d *types.ExtractionRecord) {
	row.Phone = strings.Join(d.PhoneNumbers, joinSeparator)
	row.Email = strings.Join(d.EmailAddresses, joinSeparator)
	row.Fax = strings.Join(d.FaxNumbers, joinSeparator)
	row.CompanyName = deref(d.CompanyName)
	row.BusinessHours = deref(d.BusinessHours)
	row.ClosedDays = deref(d.ClosedDays)

	if d.Address != nil {
		row.PostalCode = deref(d.Address.PostalCode)
		row.Prefecture = deref(d.Address.Prefecture)
		row.City = deref(d.Address.City)
		row.StreetAddress = deref(d.Address.StreetAddress)
	}

	row.SNSTwitter = strings.Join(d.SocialLinks[types.SNSTwitter], joinSeparator)
	row.SNSFacebook = strings.Join(d.SocialLinks[types.SNSFacebook], joinSeparator)
	row.SNSInstagram = strings.Join(d.SocialLinks[types.SNSInstagram], joinSeparator)
	row.SNSLine = strings.Join(d.SocialLinks[types.SNSLine], joinSeparator)
	row.SNSYouTube = strings.Join(d.SocialLinks[types.SNSYouTube], joinSeparator)
}

// RemoveDuplicates は同一URLの行を1つにまとめます。
// URLは完全一致で比較し (末尾スラッシュ・スキーム・大文字小文字は正規化しない)、順位が最も小さい行を残します。
// 結果は順位の昇順に並びます。
func RemoveDuplicates(rows []types.OutputRow) []types.OutputRow {
	sorted := make([]types.OutputRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank < sorted[j].Rank
	})

	seen := make(map[string]struct{}, len(sorted))
	unique := make([]types.OutputRow, 0, len(sorted))
	for _, row := range sorted {
		if _, dup := seen[row.URL]; dup {
			continue
		}
		seen[row.URL] = struct{}{}
		unique = append(unique, row)
	}
	return unique
}

// ValidateData は必須項目を満たさない行を除外します。順序は維持されます。
// URLは空でなく http:// または https:// で始まり、タイトルは空でないことが条件です。
func ValidateData(rows []types.OutputRow) []types.OutputRow {
	valid := make([]types.OutputRow, 0, len(rows))
	for _, row := range rows {
		if isValidRow(row) {
			valid = append(valid, row)
		}
	}
	return valid
}

func isValidRow(row types.OutputRow) bool {
	url := strings.TrimSpace(row.URL)
	if url == "" {
		return false
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return false
	}
	return strings.TrimSpace(row.Title) != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
