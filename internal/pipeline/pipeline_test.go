package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/shouni/go-web-research/internal/pipeline"
	"github.com/shouni/go-web-research/pkg/export"
	"github.com/shouni/go-web-research/pkg/extract"
	"github.com/shouni/go-web-research/pkg/httpclient"
	"github.com/shouni/go-web-research/pkg/scraper"
	"github.com/shouni/go-web-research/pkg/types"
)

// fakeSearcher は固定の検索結果を返します。
type fakeSearcher struct {
	items []types.SearchResultItem
	err   error
}

func (f *fakeSearcher) Search(ctx context.Context, keyword string, opts types.SearchOptions) ([]types.SearchResultItem, error) {
	return f.items, f.err
}

// recordingSink は書き込み内容を記録します。
type recordingSink struct {
	path    string
	rows    []types.OutputRow
	summary *export.Summary
}

func (s *recordingSink) WriteFile(path string, rows []types.OutputRow, summary *export.Summary) error {
	if len(rows) == 0 {
		return export.ErrEmptyData
	}
	s.path, s.rows, s.summary = path, rows, summary
	return nil
}

// fixedDetails はインデックスに対応した詳細情報を返します。
type fixedDetails struct {
	details []*types.ExtractionRecord
}

func (f *fixedDetails) ExtractDetails(ctx context.Context, items []types.SearchResultItem) []*types.ExtractionRecord {
	return f.details
}

var fixedNow = time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	_, err := pipeline.New(nil, &recordingSink{})
	assert.Error(t, err)

	_, err = pipeline.New(&fakeSearcher{}, nil)
	assert.Error(t, err)
}

func TestRun_DedupAndValidate(t *testing.T) {
	searcher := &fakeSearcher{items: []types.SearchResultItem{
		{Rank: 1, Title: "A", URL: "https://same.example.jp"},
		{Rank: 2, Title: "B", URL: "https://other.example.jp"},
		{Rank: 3, Title: "C", URL: "https://same.example.jp"},
		{Rank: 4, Title: "FTP", URL: "ftp://files.example.jp"},
	}}
	detail := types.NewExtractionRecord()
	detail.PhoneNumbers = []string{"03-1234-5678"}
	sink := &recordingSink{}

	p, err := pipeline.New(searcher, sink,
		pipeline.WithDetailExtractor(&fixedDetails{details: []*types.ExtractionRecord{detail, nil, nil, nil}}),
		pipeline.WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	dir := t.TempDir()
	res, err := p.Run(context.Background(), pipeline.Request{
		Keyword:   "渋谷 カフェ",
		Options:   types.DefaultSearchOptions(),
		Details:   true,
		OutputDir: dir,
		Summary:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Searched)
	assert.Equal(t, 1, res.Extracted)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 1, res.Invalid)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.Rows[0].Rank)
	assert.Equal(t, "03-1234-5678", res.Rows[0].Phone)
	assert.Equal(t, 2, res.Rows[1].Rank)

	assert.Equal(t, filepath.Join(dir, "検索結果_渋谷_カフェ_20250401_093000.xlsx"), res.OutputPath)
	assert.Equal(t, res.OutputPath, sink.path)
	require.NotNil(t, sink.summary)
	assert.Equal(t, res.RunID, sink.summary.RunID)
	assert.NotEmpty(t, res.RunID)
}

func TestRun_WithoutDetails(t *testing.T) {
	searcher := &fakeSearcher{items: []types.SearchResultItem{{Rank: 1, Title: "A", URL: "https://a.example.jp"}}}
	details := &fixedDetails{details: []*types.ExtractionRecord{types.NewExtractionRecord()}}
	sink := &recordingSink{}

	p, err := pipeline.New(searcher, sink, pipeline.WithDetailExtractor(details))
	require.NoError(t, err)

	res, err := p.Run(context.Background(), pipeline.Request{
		Keyword:    "a",
		Options:    types.DefaultSearchOptions(),
		OutputPath: filepath.Join(t.TempDir(), "out.xlsx"),
	})
	require.NoError(t, err)
	assert.Zero(t, res.Extracted)
	assert.Nil(t, sink.summary)
}

func TestRun_Errors(t *testing.T) {
	t.Run("検索エラー", func(t *testing.T) {
		searchErr := errors.New("quota exceeded")
		p, err := pipeline.New(&fakeSearcher{err: searchErr}, &recordingSink{})
		require.NoError(t, err)

		_, err = p.Run(context.Background(), pipeline.Request{Keyword: "a"})
		assert.True(t, errors.Is(err, searchErr))
	})

	t.Run("有効な行なし", func(t *testing.T) {
		searcher := &fakeSearcher{items: []types.SearchResultItem{{Rank: 1, Title: "", URL: "https://a.example.jp"}}}
		p, err := pipeline.New(searcher, &recordingSink{})
		require.NoError(t, err)

		res, err := p.Run(context.Background(), pipeline.Request{Keyword: "a", OutputPath: filepath.Join(t.TempDir(), "x.xlsx")})
		assert.True(t, errors.Is(err, export.ErrEmptyData))
		require.NotNil(t, res)
		assert.Equal(t, 1, res.Invalid)
		assert.Empty(t, res.OutputPath)
	})
}

func TestRun_EndToEnd(t *testing.T) {
	pages := map[string]string{
		"/shop": `<html><head><title>サンプル商店 | 渋谷</title></head><body>
			<p>電話: 03-1234-5678 FAX: 03-1234-5679</p>
			<p>メール: info@example.com</p>
			<p>〒150-0001 東京都渋谷区神宮前1-2-3</p>
			<a href="https://www.instagram.com/sample_shop"><img src="ig.png"></a>
			<p>営業時間: 10:00〜19:00 定休日: 水曜日</p>
		</body></html>`,
		"/empty": "",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	searcher := &fakeSearcher{items: []types.SearchResultItem{
		{Rank: 1, Title: "サンプル商店", URL: server.URL + "/shop"},
		{Rank: 2, Title: "空のページ", URL: server.URL + "/empty"},
		{Rank: 3, Title: "存在しないページ", URL: server.URL + "/missing"},
	}}

	client := httpclient.New(2 * time.Second).WithMaxRetries(0)
	extractor, err := extract.NewExtractor(client)
	require.NoError(t, err)
	s := scraper.NewParallelScraper(extractor, 2, scraper.WithRateLimit(0))

	p, err := pipeline.New(searcher, export.New(), pipeline.WithDetailExtractor(s))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "nested", "result.xlsx")
	res, err := p.Run(context.Background(), pipeline.Request{
		Keyword:    "渋谷",
		Options:    types.DefaultSearchOptions(),
		Details:    true,
		OutputPath: out,
		Summary:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Extracted)
	require.Len(t, res.Rows, 3)

	shop := res.Rows[0]
	assert.Equal(t, "03-1234-5678, 03-1234-5679", shop.Phone)
	assert.Equal(t, "03-1234-5679", shop.Fax)
	assert.Equal(t, "info@example.com", shop.Email)
	assert.Equal(t, "150-0001", shop.PostalCode)
	assert.Equal(t, "東京都", shop.Prefecture)
	assert.Equal(t, "渋谷区", shop.City)
	assert.Equal(t, "サンプル商店", shop.CompanyName)
	assert.Equal(t, "10:00〜19:00", shop.BusinessHours)
	assert.Equal(t, "水曜日", shop.ClosedDays)
	assert.Equal(t, "https://www.instagram.com/sample_shop", shop.SNSInstagram)

	assert.Equal(t, types.OutputRow{Rank: 2, Title: "空のページ", URL: server.URL + "/empty"}, res.Rows[1])

	f, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	sheet, ok := f.Sheet[export.ResultSheetName]
	require.True(t, ok)
	assert.Len(t, sheet.Rows, 4)
	_, ok = f.Sheet[export.SummarySheetName]
	assert.True(t, ok)
}
