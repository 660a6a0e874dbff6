package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-web-research/internal/config"
)

func presetStore() *config.PresetStore {
	return config.NewPresetStore(app.cfg.Presets.Dir)
}

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "保存済みの検索プリセットを管理します",
	Long:  `research --save-preset で保存した検索条件を一覧表示・確認・削除します。`,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "保存済みプリセットの名前を一覧表示します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := presetStore().List()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(w, "保存済みのプリセットはありません")
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(w, name)
		}
		return nil
	},
}

var presetShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "プリセットの内容を表示します",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := presetStore().Load(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "名前: %s\n", p.Name)
		fmt.Fprintf(w, "キーワード: %s\n", p.Keyword)
		if p.Provider != "" {
			fmt.Fprintf(w, "プロバイダー: %s\n", p.Provider)
		}
		fmt.Fprintf(w, "詳細抽出: %t\n", p.Details)
		fmt.Fprintf(w, "取得件数: %d\n", p.Options.NumResults)
		fmt.Fprintf(w, "地域/言語: %s / %s\n", p.Options.Region, p.Options.Language)
		if p.Options.Period != "" {
			fmt.Fprintf(w, "期間: %s\n", p.Options.Period)
		}
		if p.Options.Site != "" {
			fmt.Fprintf(w, "サイト: %s\n", p.Options.Site)
		}
		if len(p.Options.ExcludeKeywords) > 0 {
			fmt.Fprintf(w, "除外キーワード: %s\n", strings.Join(p.Options.ExcludeKeywords, ", "))
		}
		return nil
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "プリセットを削除します",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := presetStore().Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "プリセット %q を削除しました\n", args[0])
		return nil
	},
}

func init() {
	presetCmd.AddCommand(presetListCmd, presetShowCmd, presetDeleteCmd)
}
