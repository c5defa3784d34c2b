// Package analyze implements the offline analyze command.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/visorax/visorax-go/internal/conf"
	"github.com/visorax/visorax-go/internal/detector"
	"github.com/visorax/visorax-go/internal/glare"
	"github.com/visorax/visorax-go/internal/imageio"
	"github.com/visorax/visorax-go/internal/logger"
)

// Output formats
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// Result is the outcome for one input file
type Result struct {
	File            string        `json:"file"`
	Size            int           `json:"size"`
	ImageDimensions string        `json:"image_dimensions,omitempty"`
	Report          *glare.Report `json:"report,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// Command analyzes image files without starting the server.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		format      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze image files for glare",
		Long:  "Run the glare analyzer on one or more image files and print the reports.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != FormatJSON && format != FormatTable {
				return fmt.Errorf("unsupported format %q, use %s or %s", format, FormatJSON, FormatTable)
			}

			det, err := detector.New(&settings.Detector)
			if err != nil {
				return fmt.Errorf("failed to initialize object detector: %w", err)
			}
			defer func() {
				if err := det.Close(); err != nil {
					logger.Global().Module("analyze").Warn("failed to close detector", logger.Error(err))
				}
			}()

			scoring := glare.DefaultScoringConfig().WithDetector(settings.Detector.Threshold, settings.Detector.InputSize)
			analyzer, err := glare.NewAnalyzer(det, scoring)
			if err != nil {
				return err
			}

			results, err := Run(cmd.Context(), analyzer, args, concurrency)
			if err != nil {
				return err
			}

			if format == FormatTable {
				return WriteTable(cmd.OutOrStdout(), results)
			}
			return WriteJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatTable, "Output format: json or table")
	cmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Number of files analyzed in parallel")

	return cmd
}

// Run analyzes files with at most concurrency analyses in flight. Per-file
// failures are reported on the result; only context cancellation is returned.
func Run(ctx context.Context, analyzer *glare.Analyzer, files []string, concurrency int) ([]Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = analyzeFile(ctx, analyzer, file)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func analyzeFile(ctx context.Context, analyzer *glare.Analyzer, file string) Result {
	result := Result{File: file}

	data, err := os.ReadFile(file)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Size = len(data)

	frame, info, err := imageio.Decode(data, imageio.DefaultMaxPixels)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.ImageDimensions = info.Dimensions()

	report, err := analyzer.Analyze(ctx, frame)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if report.DetectorErr != nil {
		logger.Global().Module("analyze").Warn("object detection failed, scored without objects",
			logger.String("file", file),
			logger.Error(report.DetectorErr))
	}
	result.Report = report
	return result
}

// WriteJSON writes results as an indented JSON array
func WriteJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// WriteTable writes one aligned row per file
func WriteTable(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSIZE\tDIMENSIONS\tLEVEL\tCONFIDENCE\tGLARE\tTIME")
	for i := range results {
		r := &results[i]
		if r.Report == nil {
			fmt.Fprintf(tw, "%s\t%s\t%s\terror: %s\t\t\t\n",
				r.File, humanize.Bytes(uint64(r.Size)), r.ImageDimensions, r.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%t\t%.3fs\n",
			r.File,
			humanize.Bytes(uint64(r.Size)),
			r.ImageDimensions,
			r.Report.AlertLevel,
			r.Report.Confidence,
			r.Report.HasGlare,
			r.Report.ProcessingTime)
	}
	return tw.Flush()
}
