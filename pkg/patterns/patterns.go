// Package patterns は、抽出エンジンが使用する正規表現と列挙値の静的テーブルを提供します。
// すべてのテーブルはプロセス起動時に一度だけコンパイルされ、以後は読み取り専用で共有されます。
package patterns

import (
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

// Version はパターンテーブルの版です。パターンを変更した場合は更新してください。
const Version = "3"

// Def は名前付きの正規表現定義です。
type Def struct {
	Name string
	Expr string
}

// Pattern はコンパイル済みの正規表現です。
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

// SNSPattern はSNSタグごとのURLパターンです。
type SNSPattern struct {
	Tag string
	Re  *regexp.Regexp
}

// Prefectures は日本の47都道府県名です。
var Prefectures = []string{
	"北海道", "青森県", "岩手県", "宮城県", "秋田県", "山形県", "福島県",
	"茨城県", "栃木県", "群馬県", "埼玉県", "千葉県", "東京都", "神奈川県",
	"新潟県", "富山県", "石川県", "福井県", "山梨県", "長野県", "岐阜県",
	"静岡県", "愛知県", "三重県", "滋賀県", "京都府", "大阪府", "兵庫県",
	"奈良県", "和歌山県", "鳥取県", "島根県", "岡山県", "広島県", "山口県",
	"徳島県", "香川県", "愛媛県", "高知県", "福岡県", "佐賀県", "長崎県",
	"熊本県", "大分県", "宮崎県", "鹿児島県", "沖縄県",
}

// ----------------------------------------------------------------------
// 定義テーブル
// ----------------------------------------------------------------------

// PhoneDefs は電話番号の候補パターンです。順序は結果に影響しません (集合として収集)。
// 先頭が0の番号は、より長い数字列の途中から一致しないよう直前の文字を制限し、番号をキャプチャします。
var PhoneDefs = []Def{
	{"hyphenated", `(?:^|[^\d\-])(0\d{1,4}-\d{1,4}-\d{4})`},
	{"digits", `\b0\d{9,10}\b`},
	{"parenthesized", `[(（]0?\d{1,4}[)）]\s?\d{1,4}-\d{4}`},
	{"parenthesized_local", `(?:^|[^\d\-])(0\d{1,4}[(（]\d{1,4}[)）]\d{4})`},
	{"toll_free", `(?:^|[^\d\-])(0120-\d{3}-\d{3})`},
	{"toll_free_0800", `(?:^|[^\d\-])(0800-\d{3}-\d{3})`},
	{"navi_dial", `(?:^|[^\d\-])(0570-\d{3}-\d{3})`},
	{"ip_phone", `(?:^|[^\d\-])(050-\d{4}-\d{4})`},
	{"mobile", `(?:^|[^\d\-])(0[789]0-\d{4}-\d{4})`},
}

// FaxDefs はFAXラベル直後の番号を取り出すパターンです。
var FaxDefs = []Def{
	{"fax_label", `(?i)(?:fax|ファックス|ファクス)[:：\s]*([0-9()（）\-]+)`},
}

// EmailDefs はメールアドレスのパターンです。
var EmailDefs = []Def{
	{"email", `(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`},
}

// PostalCodeDefs は郵便番号のパターンです。先に一致したものを採用します。
// 電話番号の一部 (例: 090-1234-5678 の "090-1234") に一致しないよう、前後に数字やハイフンが続く場合は除外します。
var PostalCodeDefs = []Def{
	{"postal_mark", `〒\s?(\d{3}-?\d{4})`},
	{"postal_hyphenated", `(?:^|[^\d\-])(\d{3}-\d{4})(?:[^\d\-]|$)`},
}

// PrefectureDefs は都道府県名の選択パターンです。
var PrefectureDefs = []Def{
	{"prefecture", "(" + strings.Join(Prefectures, "|") + ")"},
}

// CityDefs は都道府県名の直後に続く市区町村名のパターンです。
var CityDefs = []Def{
	{"city", `^\s?([^\s\d]{1,10}?[市区町村])`},
}

// StreetAddressDefs は都道府県名の直後から番地までを取り出すパターンです。
var StreetAddressDefs = []Def{
	{"street", `^\s?([^\s]{4,49}?[0-9０-９]+(?:[-－‐ー−の][0-9０-９]+)*)`},
}

// BusinessHoursDefs は営業時間のパターンです。先頭から順に試し、最初の一致を採用します。
var BusinessHoursDefs = []Def{
	{"hours_label", `(?:営業時間|受付時間|診療時間)\s*[:：]?\s*(\S.*?)(?:\s(?:定休日|休業日|休診日|休み|TEL|電話|住所|FAX|アクセス)|$)`},
	{"hours_weekday", `((?:[月火水木金土日祝]曜?日?\s*[~〜～\-・、]\s*)?[月火水木金土日祝]曜?日?\s*\d{1,2}[:：]\d{2}\s*[~〜～\-]\s*\d{1,2}[:：]\d{2})`},
	{"hours_range", `(\d{1,2}[:：]\d{2}\s*[~〜～\-]\s*\d{1,2}[:：]\d{2})`},
}

// ClosedDaysDefs は定休日のパターンです。先頭から順に試し、最初の一致を採用します。
var ClosedDaysDefs = []Def{
	{"closed_label", `(?:定休日|休業日|休診日)\s*[:：]?\s*(\S.*?)(?:\s(?:営業時間|受付時間|診療時間|TEL|電話|住所|FAX|アクセス)|$)`},
	{"closed_short", `休み\s*[:：]\s*(\S+)`},
}

// SNSDefs はSNSタグごとのURLパターンです。生HTMLに対して適用します。
var SNSDefs = []Def{
	{"twitter", `(?i)https?://(?:www\.)?(?:twitter\.com|x\.com)/\w+`},
	{"facebook", `(?i)https?://(?:www\.)?(?:facebook\.com|fb\.com)/[\w.]+`},
	{"instagram", `(?i)https?://(?:www\.)?instagram\.com/[\w.]+`},
	{"line", `(?i)https?://(?:page\.)?line\.me/[\w/]+`},
	{"youtube", `(?i)https?://(?:www\.)?youtube\.com/[\w/?=@\-]+`},
}

// ----------------------------------------------------------------------
// ライブラリ
// ----------------------------------------------------------------------

// Library はコンパイル済みのパターン群です。生成後は変更されません。
type Library struct {
	Version       string
	Phone         []Pattern
	Fax           []Pattern
	Email         []Pattern
	PostalCode    []Pattern
	Prefecture    []Pattern
	City          []Pattern
	StreetAddress []Pattern
	BusinessHours []Pattern
	ClosedDays    []Pattern
	SNS           []SNSPattern

	// Errors はコンパイルに失敗した定義です。該当パターンはライブラリから除外されています。
	Errors []error
}

// Compile は定義を順にコンパイルします。失敗した定義はスキップし、エラーとして返します。
func Compile(defs []Def) ([]Pattern, []error) {
	compiled := make([]Pattern, 0, len(defs))
	var errs []error
	for _, d := range defs {
		re, err := regexp.Compile(d.Expr)
		if err != nil {
			errs = append(errs, eris.Wrapf(err, "パターン %q のコンパイルに失敗しました", d.Name))
			continue
		}
		compiled = append(compiled, Pattern{Name: d.Name, Re: re})
	}
	return compiled, errs
}

// Load はすべての定義テーブルをコンパイルした新しい Library を返します。
func Load() *Library {
	lib := &Library{Version: Version}
	load := func(defs []Def) []Pattern {
		p, errs := Compile(defs)
		lib.Errors = append(lib.Errors, errs...)
		return p
	}

	lib.Phone = load(PhoneDefs)
	lib.Fax = load(FaxDefs)
	lib.Email = load(EmailDefs)
	lib.PostalCode = load(PostalCodeDefs)
	lib.Prefecture = load(PrefectureDefs)
	lib.City = load(CityDefs)
	lib.StreetAddress = load(StreetAddressDefs)
	lib.BusinessHours = load(BusinessHoursDefs)
	lib.ClosedDays = load(ClosedDaysDefs)

	for _, p := range load(SNSDefs) {
		lib.SNS = append(lib.SNS, SNSPattern{Tag: p.Name, Re: p.Re})
	}
	return lib
}

var defaultLibrary = sync.OnceValue(Load)

// Default はプロセス全体で共有される Library を返します。
func Default() *Library {
	return defaultLibrary()
}
