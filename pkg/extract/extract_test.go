package extract_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-web-research/pkg/extract"
	"github.com/shouni/go-web-research/pkg/patterns"
	"github.com/shouni/go-web-research/pkg/types"
)

// ======================================================================
// モック (Mock) の定義
// ======================================================================

// MockFetcher はテスト用の extract.Fetcher インターフェースの実装です。
type MockFetcher struct {
	htmlContent string
	fetchError  error
}

// FetchBytes はモックされたHTMLをバイト配列として返すか、エラーを返します。
func (m *MockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	if m.fetchError != nil {
		return nil, m.fetchError
	}
	return []byte(m.htmlContent), nil
}

func ptr(s string) *string { return &s }

// ======================================================================
// テスト関数
// ======================================================================

func TestNewExtractor(t *testing.T) {
	t.Run("success_with_valid_fetcher", func(t *testing.T) {
		extractor, err := extract.NewExtractor(&MockFetcher{})
		assert.NoError(t, err)
		assert.NotNil(t, extractor)
	})

	t.Run("error_with_nil_fetcher", func(t *testing.T) {
		extractor, err := extract.NewExtractor(nil)
		assert.Error(t, err)
		assert.Nil(t, extractor)
		assert.Contains(t, err.Error(), "Fetcher cannot be nil")
	})
}

func TestNormalizeHTML(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name: "scriptとstyleの中身を除外",
			html: `<html><head><style>.a{color:red}</style><script>var tel = "03-0000-0000";</script></head>` +
				"<body><p>電話:\n   03-1234-5678</p><p>東京都</p></body></html>",
			expected: "電話: 03-1234-5678 東京都",
		},
		{
			name:     "プレーンテキストの空白を圧縮",
			html:     "  営業時間\n\n 10:00　〜　19:00  ",
			expected: "営業時間 10:00 〜 19:00",
		},
		{
			name:     "空文字列",
			html:     "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extract.NormalizeHTML(tc.html))
		})
	}
}

func TestExtractPhone(t *testing.T) {
	e := extract.New()

	testCases := []struct {
		name     string
		html     string
		expected []string
	}{
		{"ハイフン区切り", "電話: 03-1234-5678", []string{"03-1234-5678"}},
		{"重複は1件にまとめる", "03-1234-5678 / 03-1234-5678", []string{"03-1234-5678"}},
		{"昇順に並べる", "090-1234-5678 03-1234-5678", []string{"03-1234-5678", "090-1234-5678"}},
		{"フリーダイヤル", "フリーダイヤル 0120-123-456", []string{"0120-123-456"}},
		{"フリーダイヤルの桁数違いは除外", "0120-1234-5678", []string{}},
		{"携帯電話", "携帯 090-1234-5678", []string{"090-1234-5678"}},
		{"携帯電話の桁数違いは除外", "090-123-4567", []string{}},
		{"IP電話", "050-1234-5678", []string{"050-1234-5678"}},
		{"括弧付きの市外局番", "(03) 1234-5678", []string{"031234-5678"}},
		{"ハイフンなし", "TEL 0312345678", []string{"0312345678"}},
		{"全角数字", "０３－１２３４－５６７８", []string{"03-1234-5678"}},
		{"scriptの中は対象外", `<script>var t = "03-9999-9999";</script><p>03-1234-5678</p>`, []string{"03-1234-5678"}},
		{"長い数字列の途中からは抽出しない", "11203-1234-5678", []string{}},
		{"長い数字列の途中の携帯番号も抽出しない", "11090-1234-5678", []string{}},
		{"行頭の番号", "03-1234-5678\n090-1234-5678", []string{"03-1234-5678", "090-1234-5678"}},
		{"隣接する番号", "03-1234-5678,06-1234-5678", []string{"03-1234-5678", "06-1234-5678"}},
		{"番号なし", "お問い合わせはフォームから", []string{}},
		{"空のHTML", "", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, e.ExtractPhone(tc.html))
		})
	}
}

func TestExtractPhone_ResultsAreValidAndUnique(t *testing.T) {
	e := extract.New()
	inputs := []string{
		"0120-123-456 0120-1234-567 0120123456 01201234567",
		"0570-123-456 0570-1234-5678 050-1234-5678 050-123-4567",
		"070-1234-5678 080-1234-5678 090-1234-5678 0901234567 09012345678",
		"03-1234-5678 (03)1234-5678 03(1234)5678 0312345678 1234567890",
	}

	for _, in := range inputs {
		got := e.ExtractPhone(in)
		seen := make(map[string]bool)
		for _, phone := range got {
			assert.False(t, seen[phone], "重複した番号: %s", phone)
			seen[phone] = true

			digits := strings.ReplaceAll(phone, "-", "")
			assert.True(t, strings.HasPrefix(digits, "0"), phone)
			switch {
			case strings.HasPrefix(digits, "0120"), strings.HasPrefix(digits, "0800"), strings.HasPrefix(digits, "0570"):
				assert.Len(t, digits, 10, phone)
			case strings.HasPrefix(digits, "050"), strings.HasPrefix(digits, "070"),
				strings.HasPrefix(digits, "080"), strings.HasPrefix(digits, "090"):
				assert.Len(t, digits, 11, phone)
			default:
				assert.Contains(t, []int{10, 11}, len(digits), phone)
			}
		}
	}
}

func TestExtractFax(t *testing.T) {
	e := extract.New()

	testCases := []struct {
		name     string
		html     string
		expected []string
	}{
		{"FAXラベル", "TEL: 03-1234-5678 FAX: 03-1234-5679", []string{"03-1234-5679"}},
		{"小文字のラベル", "fax 06-1111-2222", []string{"06-1111-2222"}},
		{"カタカナのラベル_全角コロン", "ファックス：06-1111-2222", []string{"06-1111-2222"}},
		{"ファクス", "ファクス 0120-111-222", []string{"0120-111-222"}},
		{"括弧付き", "Fax (03)1234-5678", []string{"031234-5678"}},
		{"桁数不足", "FAX: 123", []string{}},
		{"ラベルなし", "03-1234-5678", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, e.ExtractFax(tc.html))
		})
	}
}

func TestExtractEmail(t *testing.T) {
	e := extract.New()

	testCases := []struct {
		name     string
		html     string
		expected []string
	}{
		{"小文字に正規化", "メール: Info@Example.com", []string{"info@example.com"}},
		{"重複の除去", "a@example.jp A@EXAMPLE.JP", []string{"a@example.jp"}},
		{"画像ファイル名を除外", "icon@2x.png info@example.com logo@3x.SVG", []string{"info@example.com"}},
		{"アドレスなし", "no email here", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.ExtractEmail(tc.html)
			assert.Equal(t, tc.expected, got)
			for _, email := range got {
				for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".svg"} {
					assert.False(t, strings.HasSuffix(email, ext), email)
				}
			}
		})
	}
}

func TestExtractAddress(t *testing.T) {
	e := extract.New()

	testCases := []struct {
		name     string
		html     string
		expected *types.Address
	}{
		{
			name:     "都道府県と市区町村のみ",
			html:     "東京都渋谷区",
			expected: &types.Address{Prefecture: ptr("東京都"), City: ptr("渋谷区")},
		},
		{
			name:     "郵便番号のみ",
			html:     "〒150-0001",
			expected: &types.Address{PostalCode: ptr("150-0001")},
		},
		{
			name: "郵便番号の整形と番地",
			html: "〒1500001 東京都渋谷区神宮前1-2-3 ABCビル",
			expected: &types.Address{
				PostalCode:    ptr("150-0001"),
				Prefecture:    ptr("東京都"),
				City:          ptr("渋谷区"),
				StreetAddress: ptr("渋谷区神宮前1-2-3"),
			},
		},
		{
			name: "市の後に区が続く",
			html: "大阪府大阪市北区梅田1丁目",
			expected: &types.Address{
				Prefecture:    ptr("大阪府"),
				City:          ptr("大阪市"),
				StreetAddress: ptr("大阪市北区梅田1"),
			},
		},
		{
			name: "括弧を除去",
			html: "東京都港区（本社）芝公園4-2-8",
			expected: &types.Address{
				Prefecture:    ptr("東京都"),
				City:          ptr("港区"),
				StreetAddress: ptr("港区本社芝公園4-2-8"),
			},
		},
		{
			name:     "電話番号を郵便番号と誤認しない",
			html:     "電話: 03-1234-5678",
			expected: nil,
		},
		{
			name:     "住所なし",
			html:     "Hello world",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, e.ExtractAddress(tc.html))
		})
	}
}

func TestExtractCompanyName(t *testing.T) {
	e := extract.New()
	longHeading := strings.Repeat("長", 50)

	testCases := []struct {
		name     string
		html     string
		expected *string
	}{
		{
			name: "構造化データをタイトルより優先",
			html: `<html><head><title>Other | Acme</title>` +
				`<script type="application/ld+json">{"@type":"Organization","name":"Acme"}</script></head><body></body></html>`,
			expected: ptr("Acme"),
		},
		{
			name: "構造化データの配列_legalName",
			html: `<script type="application/ld+json">[{"@type":"WebSite"},{"@type":"Organization","legalName":"株式会社サンプル"}]</script>`,
			expected: ptr("株式会社サンプル"),
		},
		{
			name:     "構造化データの@graph",
			html:     `<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"Organization","name":"Graph Corp"}]}</script>`,
			expected: ptr("Graph Corp"),
		},
		{
			name:     "末尾カンマの構造化データを修復",
			html:     `<script type="application/ld+json">{"@type":"Organization","name":"Repaired Inc",}</script>`,
			expected: ptr("Repaired Inc"),
		},
		{
			name: "壊れた構造化データはog:site_nameへ",
			html: `<head><script type="application/ld+json">{{{</script>` +
				`<meta property="og:site_name" content=" サンプル商店 "></head>`,
			expected: ptr("サンプル商店"),
		},
		{
			name:     "h1をタイトルより優先",
			html:     `<title>トップページ | 山田工務店</title><h1>山田工務店</h1>`,
			expected: ptr("山田工務店"),
		},
		{
			name:     "検索を含むh1は除外",
			html:     `<title>田中商事 - ホーム</title><h1>サイト内検索</h1>`,
			expected: ptr("田中商事"),
		},
		{
			name:     "長すぎるh1は除外",
			html:     `<title>鈴木商店</title><h1>` + longHeading + `</h1>`,
			expected: ptr("鈴木商店"),
		},
		{
			name:     "区切り文字は優先順に判定",
			html:     `<title>Alpha / Beta | Gamma</title>`,
			expected: ptr("Alpha / Beta"),
		},
		{
			name:     "区切り文字で空になるタイトル",
			html:     `<title>【公式】</title>`,
			expected: nil,
		},
		{
			name:     "候補なし",
			html:     `<p>本文のみ</p>`,
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, e.ExtractCompanyName(tc.html))
		})
	}
}

func TestExtractBusinessHoursAndClosedDays(t *testing.T) {
	e := extract.New()
	longHours := "営業時間: " + strings.Repeat("あ", 150)
	longClosed := "定休日: " + strings.Repeat("い", 80)

	t.Run("ラベル付き", func(t *testing.T) {
		html := "<p>営業時間: 10:00〜19:00</p><p>定休日: 水曜日</p>"
		assert.Equal(t, ptr("10:00〜19:00"), e.ExtractBusinessHours(html))
		assert.Equal(t, ptr("水曜日"), e.ExtractClosedDays(html))
	})

	t.Run("受付時間_全角コロン", func(t *testing.T) {
		assert.Equal(t, ptr("9:00-18:00"), e.ExtractBusinessHours("受付時間：9:00-18:00 TEL 03-1234-5678"))
	})

	t.Run("曜日付きの時間帯", func(t *testing.T) {
		assert.Equal(t, ptr("月〜金 9:00〜17:00"), e.ExtractBusinessHours("月〜金 9:00〜17:00"))
	})

	t.Run("休業日と休み", func(t *testing.T) {
		assert.Equal(t, ptr("土日祝"), e.ExtractClosedDays("休業日：土日祝"))
		assert.Equal(t, ptr("日曜"), e.ExtractClosedDays("休み: 日曜"))
	})

	t.Run("上限で切り詰める", func(t *testing.T) {
		hours := e.ExtractBusinessHours(longHours)
		require.NotNil(t, hours)
		assert.Len(t, []rune(*hours), extract.MaxBusinessHoursLength)
		assert.True(t, strings.HasSuffix(*hours, "…"))

		closed := e.ExtractClosedDays(longClosed)
		require.NotNil(t, closed)
		assert.Len(t, []rune(*closed), extract.MaxClosedDaysLength)
		assert.True(t, strings.HasSuffix(*closed, "…"))
	})

	t.Run("該当なし", func(t *testing.T) {
		assert.Nil(t, e.ExtractBusinessHours("お問い合わせ"))
		assert.Nil(t, e.ExtractClosedDays("お問い合わせ"))
	})
}

func TestExtractSocialLinks(t *testing.T) {
	e := extract.New()
	html := `<footer>
		<a href="https://twitter.com/acme">t</a>
		<a href="https://x.com/acme2">x</a>
		<a href="https://www.facebook.com/acme.jp">f</a>
		<a href="https://www.facebook.com/acme.jp">f2</a>
		<a href="https://www.instagram.com/acme_official">i</a>
		<a href="https://line.me/ti/p/abcdef">l</a>
	</footer>`

	links := e.ExtractSocialLinks(html)

	assert.Equal(t, map[string][]string{
		types.SNSTwitter:   {"https://twitter.com/acme", "https://x.com/acme2"},
		types.SNSFacebook:  {"https://www.facebook.com/acme.jp"},
		types.SNSInstagram: {"https://www.instagram.com/acme_official"},
		types.SNSLine:      {"https://line.me/ti/p/abcdef"},
	}, links)
	_, hasYouTube := links[types.SNSYouTube]
	assert.False(t, hasYouTube, "一致がないSNSは含めない")
}

func TestExtractAll(t *testing.T) {
	e := extract.New()

	t.Run("テキストからの一括抽出", func(t *testing.T) {
		record := e.ExtractAll("電話: 03-1234-5678 メール: info@example.com 東京都渋谷区")

		assert.Equal(t, []string{"03-1234-5678"}, record.PhoneNumbers)
		assert.Equal(t, []string{"info@example.com"}, record.EmailAddresses)
		assert.Equal(t, []string{}, record.FaxNumbers)
		assert.Equal(t, &types.Address{Prefecture: ptr("東京都"), City: ptr("渋谷区")}, record.Address)
		assert.Nil(t, record.CompanyName)
		assert.Nil(t, record.BusinessHours)
		assert.Nil(t, record.ClosedDays)
		assert.NotNil(t, record.SocialLinks)
		assert.Empty(t, record.SocialLinks)
	})

	t.Run("郵便番号のみ", func(t *testing.T) {
		record := e.ExtractAll("〒150-0001")
		assert.Equal(t, &types.Address{PostalCode: ptr("150-0001")}, record.Address)
	})

	t.Run("空のHTMLでも空のコレクションを返す", func(t *testing.T) {
		record := e.ExtractAll("   ")
		assert.Equal(t, types.NewExtractionRecord(), record)
	})
}

func TestWithLibrary_BrokenPatternIsSkipped(t *testing.T) {
	phone, errs := patterns.Compile([]patterns.Def{
		{Name: "broken", Expr: `(0\d+`},
		{Name: "hyphenated", Expr: `0\d{1,4}-\d{1,4}-\d{4}`},
	})
	require.Len(t, errs, 1)

	lib := patterns.Load()
	lib.Phone = phone
	lib.Errors = errs

	e := extract.New(extract.WithLibrary(lib))
	assert.Equal(t, []string{"03-1234-5678"}, e.ExtractPhone("03-1234-5678"))
}

func TestFetchAndExtract(t *testing.T) {
	testCases := []struct {
		name        string
		html        string
		fetchErr    error
		expectedErr error
		expectErr   bool
	}{
		{
			name: "success",
			html: `<html><head><title>サンプル株式会社 | トップ</title></head><body><p>TEL 03-1234-5678</p></body></html>`,
		},
		{
			name:      "fetch_error",
			fetchErr:  errors.New("network timeout"),
			expectErr: true,
		},
		{
			name:        "empty_body",
			html:        "  \n ",
			expectErr:   true,
			expectedErr: extract.ErrNoContent,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			extractor, err := extract.NewExtractor(&MockFetcher{htmlContent: tc.html, fetchError: tc.fetchErr})
			require.NoError(t, err)

			record, err := extractor.FetchAndExtract(context.Background(), "https://example.com/"+tc.name)
			if tc.expectErr {
				assert.Error(t, err)
				assert.Nil(t, record)
				if tc.expectedErr != nil {
					assert.True(t, errors.Is(err, tc.expectedErr))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"03-1234-5678"}, record.PhoneNumbers)
			assert.Equal(t, ptr("サンプル株式会社"), record.CompanyName)
		})
	}

	t.Run("fetcherなし", func(t *testing.T) {
		_, err := extract.New().FetchAndExtract(context.Background(), "https://example.com")
		assert.ErrorIs(t, err, extract.ErrNoFetcher)

		_, err = extract.New().FetchBytes(context.Background(), "https://example.com/robots.txt")
		assert.ErrorIs(t, err, extract.ErrNoFetcher)
	})
}

func TestExtractPage(t *testing.T) {
	e := extract.New()
	page := types.RawPage{
		URL:  "https://example.jp/access",
		HTML: `<html><head><title>サンプル商店</title></head><body><p>TEL 06-1234-5678</p></body></html>`,
	}

	record := e.ExtractPage(page)
	assert.Equal(t, e.ExtractAll(page.HTML), record)
	assert.Equal(t, []string{"06-1234-5678"}, record.PhoneNumbers)
}
