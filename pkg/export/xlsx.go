// Package export は、出力行をスプレッドシート (xlsx) に書き出します。
package export

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/pkg/types"
)

const (
	ResultSheetName  = "検索結果"
	SummarySheetName = "サマリー"

	headerFillColor = "FFD9E1F2"
	timestampLayout = "2006-01-02 15:04:05"
	fileTimeLayout  = "20060102_150405"
)

// ErrEmptyData は出力対象の行が1件もない場合に返されます。
var ErrEmptyData = eris.New("出力するデータがありません")

// column は出力列の定義です。
type column struct {
	header string
	width  float64
	value  func(r types.OutputRow) string
}

// columns は出力列の固定順序です。順位列は数値として別扱いにします。
var columns = []column{
	{"順位", 6, nil},
	{"タイトル", 40, func(r types.OutputRow) string { return r.Title }},
	{"URL", 50, func(r types.OutputRow) string { return r.URL }},
	{"説明文", 60, func(r types.OutputRow) string { return r.Description }},
	{"電話番号", 18, func(r types.OutputRow) string { return r.Phone }},
	{"メールアドレス", 30, func(r types.OutputRow) string { return r.Email }},
	{"郵便番号", 10, func(r types.OutputRow) string { return r.PostalCode }},
	{"都道府県", 10, func(r types.OutputRow) string { return r.Prefecture }},
	{"市区町村", 14, func(r types.OutputRow) string { return r.City }},
	{"住所", 40, func(r types.OutputRow) string { return r.StreetAddress }},
	{"FAX", 18, func(r types.OutputRow) string { return r.Fax }},
	{"会社名・店舗名", 30, func(r types.OutputRow) string { return r.CompanyName }},
	{"営業時間", 30, func(r types.OutputRow) string { return r.BusinessHours }},
	{"定休日", 20, func(r types.OutputRow) string { return r.ClosedDays }},
	{"Twitter", 35, func(r types.OutputRow) string { return r.SNSTwitter }},
	{"Facebook", 35, func(r types.OutputRow) string { return r.SNSFacebook }},
	{"Instagram", 35, func(r types.OutputRow) string { return r.SNSInstagram }},
	{"LINE", 35, func(r types.OutputRow) string { return r.SNSLine }},
	{"YouTube", 35, func(r types.OutputRow) string { return r.SNSYouTube }},
}

// Headers は出力列の見出しを順に返します。
func Headers() []string {
	h := make([]string, len(columns))
	for i, c := range columns {
		h[i] = c.header
	}
	return h
}

// Summary はサマリーシートに記録する実行情報です。
type Summary struct {
	Keyword     string
	GeneratedAt time.Time
	RunID       string
}

// Exporter はxlsxファイルの生成を行います。
type Exporter struct {
	logger *zap.Logger
}

// Option は Exporter の設定を行うための関数型です。
type Option func(*Exporter)

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New は Exporter を生成します。
func New(opts ...Option) *Exporter {
	e := &Exporter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build は出力行からワークブックを組み立てます。summary が nil の場合はサマリーシートを作りません。
func (e *Exporter) Build(rows []types.OutputRow, summary *Summary) (*xlsx.File, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyData
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(ResultSheetName)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: シートの追加に失敗しました")
	}

	headerStyle := newHeaderStyle()
	header := sheet.AddRow()
	for _, c := range columns {
		cell := header.AddCell()
		cell.SetString(c.header)
		cell.SetStyle(headerStyle)
	}
	for i, c := range columns {
		sheet.SetColWidth(i, i, c.width)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Rank)
		for _, c := range columns[1:] {
			row.AddCell().SetString(c.value(r))
		}
	}

	if summary != nil {
		if err := addSummarySheet(f, summary, len(rows)); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("ワークブックを作成しました", zap.Int("rows", len(rows)), zap.Bool("summary", summary != nil))
	return f, nil
}

// WriteFile はワークブックを path に保存します。
func (e *Exporter) WriteFile(path string, rows []types.OutputRow, summary *Summary) error {
	f, err := e.Build(rows, summary)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: ファイルの保存に失敗しました (%s)", path)
	}
	e.logger.Info("検索結果を保存しました", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

// Write はワークブックを w に書き出します。
func (e *Exporter) Write(w io.Writer, rows []types.OutputRow, summary *Summary) error {
	f, err := e.Build(rows, summary)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: 書き込みに失敗しました")
	}
	return nil
}

func addSummarySheet(f *xlsx.File, s *Summary, count int) error {
	sheet, err := f.AddSheet(SummarySheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: サマリーシートの追加に失敗しました")
	}

	addPair := func(label, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		row.AddCell().SetString(value)
	}
	addPair("検索キーワード", s.Keyword)
	addPair("実行日時", s.GeneratedAt.Format(timestampLayout))

	row := sheet.AddRow()
	row.AddCell().SetString("取得件数")
	row.AddCell().SetInt(count)

	if s.RunID != "" {
		addPair("実行ID", s.RunID)
	}
	sheet.SetColWidth(0, 0, 16)
	sheet.SetColWidth(1, 1, 40)
	return nil
}

func newHeaderStyle() *xlsx.Style {
	style := xlsx.NewStyle()
	style.Font.Bold = true
	style.Fill = *xlsx.NewFill("solid", headerFillColor, headerFillColor)
	style.Alignment.Horizontal = "center"
	style.ApplyFont = true
	style.ApplyFill = true
	style.ApplyAlignment = true
	return style
}

// unsafeFileChars はファイル名に使用できない文字です。
var unsafeFileChars = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

// DefaultFileName は検索キーワードと日時から出力ファイル名を生成します。
func DefaultFileName(keyword string, now time.Time) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.TrimSpace(keyword), "_"), "_")
	if name == "" {
		name = "result"
	}
	return "検索結果_" + name + "_" + now.Format(fileTimeLayout) + ".xlsx"
}
