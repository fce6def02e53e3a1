package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/findash/internal/analysis"
	"github.com/KaramelBytes/findash/internal/dataset"
	"github.com/KaramelBytes/findash/internal/utils"
)

var (
	prepOutputPath string
	prepSummary    bool
	prepSumFormat  string
	prepDelimiter  string
	prepDecimal    string
	prepThousands  string
	prepSheetIndex int
	prepSampleRows int
	prepMaxRows    int
	prepGroupBy    []string
	prepCorr       bool
	prepCorrGroups bool
	prepOutliers   bool
	prepOutlierThr float64
)

var prepareCmd = &cobra.Command{
	Use:   "prepare [file]",
	Short: "Load and prepare the workbook, then export it or print a summary",
	Long: `Prepare loads the workbook (default: config data_path), replaces missing
Discount Band values with "No Discount", derives Discount Percentage as
Discounts / Gross Sales * 100 and trims whitespace from column labels.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		path := c.DataPath
		if len(args) == 1 {
			path = args[0]
		}
		switch strings.ToLower(prepSumFormat) {
		case "markdown", "md", "json":
		default:
			return fmt.Errorf("unsupported --summary-format: %s (use markdown|json)", prepSumFormat)
		}
		lopt, err := prepareLoadOptions(cmd, c.SheetName)
		if err != nil {
			return err
		}

		logger.Debug().Str("path", path).Msg("preparing dataset")
		ds, err := dataset.Prepare(path, lopt)
		if err != nil {
			return err
		}
		logger.Info().Str("dataset", ds.Name).Int("rows", ds.Len()).Int("columns", len(ds.Columns)).Msg("dataset prepared")

		out := cmd.OutOrStdout()
		if prepOutputPath != "" {
			var buf bytes.Buffer
			if err := dataset.Export(&buf, ds, prepOutputPath); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if err := utils.SafeWriteFile(prepOutputPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote prepared dataset to %s\n", prepOutputPath)
		} else {
			fmt.Fprintf(out, "✓ Prepared %s: %d rows, %d columns\n", ds.Name, ds.Len(), len(ds.Columns))
			fmt.Fprintf(out, "Columns: %s\n", strings.Join(ds.Columns, ", "))
		}

		if prepSummary {
			opt := analysis.DefaultOptions()
			if prepSampleRows >= 0 {
				opt.SampleRows = prepSampleRows
			}
			if prepMaxRows >= 0 {
				opt.MaxRows = prepMaxRows
			}
			opt.GroupBy = prepGroupBy
			opt.Correlations = prepCorr
			opt.CorrPerGroup = prepCorrGroups
			opt.Outliers = prepOutliers
			if prepOutlierThr > 0 {
				opt.OutlierThreshold = prepOutlierThr
			}
			rep := analysis.Summarize(ds, opt)
			fmt.Fprintln(out)
			switch strings.ToLower(prepSumFormat) {
			case "json":
				b, err := utils.PrettyJSON(rep)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
			default:
				fmt.Fprintln(out, rep.Markdown())
			}
		}
		return nil
	},
}

func prepareLoadOptions(cmd *cobra.Command, sheet string) (dataset.LoadOptions, error) {
	opt := dataset.DefaultLoadOptions()
	opt.Sheet = sheet
	if cmd.Flags().Changed("sheet-index") {
		opt.Sheet = ""
		opt.SheetIndex = prepSheetIndex
	}
	switch prepDelimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", prepDelimiter)
	}
	switch strings.ToLower(strings.TrimSpace(prepDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", prepDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(prepThousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", prepThousands)
	}
	return opt, nil
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.Flags().StringVarP(&prepOutputPath, "output", "o", "", "write the prepared dataset (.csv or .json)")
	prepareCmd.Flags().BoolVar(&prepSummary, "summary", false, "print a Markdown summary of the prepared dataset")
	prepareCmd.Flags().StringVar(&prepSumFormat, "summary-format", "markdown", "summary output: markdown|json")
	prepareCmd.Flags().StringVar(&prepDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	prepareCmd.Flags().StringVar(&prepDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	prepareCmd.Flags().StringVar(&prepThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	prepareCmd.Flags().IntVar(&prepSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used instead of --sheet)")
	prepareCmd.Flags().IntVar(&prepSampleRows, "sample-rows", 5, "summary: number of sample rows to include")
	prepareCmd.Flags().IntVar(&prepMaxRows, "max-rows", 100000, "summary: maximum rows to process (0 = unlimited)")
	prepareCmd.Flags().StringSliceVar(&prepGroupBy, "group-by", nil, "summary: comma-separated column names to group by (repeatable)")
	prepareCmd.Flags().BoolVar(&prepCorr, "correlations", false, "summary: compute Pearson correlations among numeric columns")
	prepareCmd.Flags().BoolVar(&prepCorrGroups, "corr-per-group", false, "summary: compute correlation pairs within each group")
	prepareCmd.Flags().BoolVar(&prepOutliers, "outliers", true, "summary: compute robust outlier counts (MAD)")
	prepareCmd.Flags().Float64Var(&prepOutlierThr, "outlier-threshold", 3.5, "summary: robust |z| threshold for outliers")
}
