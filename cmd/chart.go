package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/findash/internal/charts"
	"github.com/KaramelBytes/findash/internal/dataset"
	"github.com/KaramelBytes/findash/internal/render"
	"github.com/KaramelBytes/findash/internal/utils"
)

var (
	chartOutput string
	chartWidth  int
	chartHeight int
	chartFont   string
	chartList   bool
)

var chartCmd = &cobra.Command{
	Use:   "chart [id]",
	Short: "Render a dashboard figure to PNG (bar, grouped bar and pie figures)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if chartList || len(args) == 0 {
			// IDs and kinds do not depend on the data.
			for _, f := range charts.Build(&dataset.Dataset{}) {
				mark := " "
				if render.Supported(f.Kind) {
					mark = "✓"
				}
				fmt.Fprintf(out, "%s %-15s %-12s %s\n", mark, f.ID, f.Kind, f.Title)
			}
			return nil
		}

		c, err := requireConfig()
		if err != nil {
			return err
		}
		opt := dataset.DefaultLoadOptions()
		opt.Sheet = c.SheetName
		ds, err := dataset.Prepare(c.DataPath, opt)
		if err != nil {
			return err
		}
		fig, err := charts.Lookup(charts.Build(ds), args[0])
		if err != nil {
			return err
		}

		ropt := render.DefaultOptions()
		if chartWidth > 0 {
			ropt.Width = chartWidth
		}
		if chartHeight > 0 {
			ropt.Height = chartHeight
		}
		ropt.FontPath = chartFont
		var buf bytes.Buffer
		if err := render.PNG(&buf, fig, ropt); err != nil {
			return err
		}
		path := chartOutput
		if path == "" {
			path = fig.ID + ".png"
		}
		if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		logger.Debug().Str("figure", fig.ID).Int("bytes", buf.Len()).Msg("chart rendered")
		fmt.Fprintf(out, "✓ Wrote %s to %s\n", fig.Title, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "PNG path (default <id>.png)")
	chartCmd.Flags().IntVar(&chartWidth, "width", 0, "image width in pixels")
	chartCmd.Flags().IntVar(&chartHeight, "height", 0, "image height in pixels")
	chartCmd.Flags().StringVar(&chartFont, "font", "", "TrueType font file for labels")
	chartCmd.Flags().BoolVar(&chartList, "list", false, "list figure IDs")
}
