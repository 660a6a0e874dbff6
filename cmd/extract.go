package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shouni/go-web-research/pkg/extract"
	"github.com/shouni/go-web-research/pkg/types"
)

var rawURL string

// runExtraction は1ページを取得して詳細情報を抽出します。
func runExtraction(ctx context.Context, targetURL string, extractor *extract.Extractor) (*types.ExtractionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, overallTimeout())
	defer cancel()

	record, err := extractor.FetchAndExtract(ctx, targetURL)
	if err != nil {
		return nil, eris.Wrapf(err, "詳細情報の抽出エラー (URL: %s)", targetURL)
	}
	return record, nil
}

// readURLFromStdin は標準入力の1行目をURLとして読み込みます。
func readURLFromStdin(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "処理するURLを入力してください: ")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", eris.Wrap(err, "標準入力の読み取りエラー")
		}
		return "", eris.New("URLが入力されていません")
	}
	return scanner.Text(), nil
}

var extractCmd = &cobra.Command{
	Use:   "extract [URL]",
	Short: "1つのURLから電話番号・住所などの詳細情報を抽出し、JSONで出力します",
	Long:  `指定されたURL (引数、--url、または標準入力) のページを取得し、電話番号・FAX・メール・住所・会社名・営業時間・定休日・SNSリンクを抽出してJSONで出力します。`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := app.logger
		defer func() { _ = logger.Sync() }()

		urlToProcess := rawURL
		if len(args) > 0 {
			urlToProcess = args[0]
		}
		if urlToProcess == "" {
			var err error
			if urlToProcess, err = readURLFromStdin(cmd); err != nil {
				return err
			}
		}

		processedURL, err := ensureScheme(urlToProcess)
		if err != nil {
			return err
		}
		logger.Info("詳細情報を抽出します", zap.String("url", processedURL), zap.Duration("timeout", overallTimeout()))

		if app.pageFetcher == nil {
			return eris.New("HTTPクライアントが初期化されていません")
		}
		extractor, err := extract.NewExtractor(app.pageFetcher, extract.WithLogger(logger))
		if err != nil {
			return err
		}

		record, err := runExtraction(cmd.Context(), processedURL, extractor)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

func init() {
	extractCmd.Flags().StringVarP(&rawURL, "url", "u", "", "抽出対象のURL")
}
