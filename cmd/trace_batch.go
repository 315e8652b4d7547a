package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/KaramelBytes/outfall-cli/internal/pipeline"
	"github.com/KaramelBytes/outfall-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	batchOpts  traceFlags
	batchQuiet bool
)

// expandInputs resolves glob patterns and literal paths into a sorted,
// de-duplicated file list.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

var traceBatchCmd = &cobra.Command{
	Use:   "trace-batch <files...>",
	Short: "Trace multiple CSV/TSV/XLSX inventories with progress",
	Long: `Runs trace on every matched file. Each input gets its own subdirectory of the
output directory, named after the file. A failing file is reported and the batch
continues; the command fails at the end if any file failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}

		s := batchOpts.resolve(cmd)
		p, err := pipeline.New(s.params, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		log := logger.With("module", "batch")
		stems := utils.UniqueStems(files)
		total := len(files)
		var failed []error
		for i, path := range files {
			if !batchQuiet {
				fmt.Fprintf(out, "[%d/%d] Tracing %s...\n", i+1, total, filepath.Base(path))
			}
			dir := filepath.Join(s.outputDir, stems[i])
			tr, err := traceFile(cmd, p, s, &batchOpts.input, path, dir, batchQuiet)
			if err != nil {
				log.Error("trace failed", "file", path, "err", err)
				fmt.Fprintf(out, "✗ %s: %v\n", filepath.Base(path), err)
				failed = append(failed, fmt.Errorf("%s: %w", path, err))
				continue
			}
			if batchOpts.stdout {
				fmt.Fprintln(out, tr.report)
			}
			res := tr.result
			log.Info("trace written", "file", path, "dir", dir, "outputs", len(tr.written), "run_id", res.RunID())
			if !batchQuiet {
				fmt.Fprintf(out, "✓ %d clusters, %d noise -> %s\n", res.ClusterCount(), res.NoiseCount(), dir)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d files failed: %w", len(failed), total, errors.Join(failed...))
		}
		if !batchQuiet {
			fmt.Fprintf(out, "✓ Traced %d files into %s\n", total, s.outputDir)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(traceBatchCmd)
	batchOpts.register(traceBatchCmd)
	traceBatchCmd.Flags().BoolVar(&batchQuiet, "quiet", false, "suppress progress output")
}
