package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/outfall-cli/internal/profile"
	"github.com/KaramelBytes/outfall-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	profInput     inputFlags
	profOutput    string
	profKeyword   string
	profTopValues int
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Summarize data quality of a discharge-outlet inventory",
	Long: `Reports missing values per field, numeric summaries with IQR outliers,
category distributions and the count of outlets whose discharge feature
contains a keyword (default: 冷却水), broken down by province.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ld, err := loadRecords(cmd, args[0], &profInput, profOutput == "")
		if err != nil {
			return err
		}
		opt := profile.DefaultOptions()
		opt.Keyword = cfg.HighlightKeyword
		if cmd.Flags().Changed("keyword") {
			opt.Keyword = profKeyword
		}
		if cmd.Flags().Changed("top-values") {
			opt.TopValues = profTopValues
		}
		md := profile.Build(ld.table.Name, ld.records, opt).Markdown()

		if profOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		if dir := filepath.Dir(profOutput); dir != "." {
			if err := utils.EnsureDir(dir); err != nil {
				return err
			}
		}
		if err := utils.SafeWriteFile(profOutput, []byte(md)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	f := profileCmd.Flags()
	f.StringVarP(&profOutput, "output", "o", "", "write the profile to this file instead of stdout")
	f.StringVar(&profKeyword, "keyword", profile.DefaultKeyword, "discharge-feature keyword to count by province (empty disables)")
	f.IntVar(&profTopValues, "top-values", profile.DefaultTopValues, "values listed per category distribution (negative lists all)")
	profInput.register(f)
}
