package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/autolabel"
	"github.com/hupe1980/autolabel/blobstore"
	"github.com/hupe1980/autolabel/codec"
)

// runCommand creates the command that executes one labeling round.
func runCommand(c *cli) *cobra.Command {
	var (
		requestURI string
		req        autolabel.Request
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one active-learning round",
		Long: `Score model predictions, auto-annotate confident records and select
the least confident records for the next human labeling job.

The request is read from --request (a local path or s3:// URI holding the
JSON event) and overridden by any request flag set on the command line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.settings, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			final := autolabel.Request{MaxSelections: c.settings.Pipeline.MaxSelections}
			if requestURI != "" {
				if err := a.readJSON(ctx, requestURI, &final); err != nil {
					return fmt.Errorf("read request: %w", err)
				}
			}
			overrideRequest(cmd, &final, req)

			res, runErr := a.pipeline.Run(ctx, final)
			a.exportMetrics(ctx, "autolabel_run")
			if runErr != nil {
				return runErr
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&requestURI, "request", "", "JSON request event, local path or s3:// URI")
	f.StringVar(&req.UnlabeledManifestURI, "manifest", "", "Unlabeled manifest URI")
	f.StringVar(&req.PredictionsURI, "predictions", "", "Batch inference output URI")
	f.StringVar(&req.LabelCategoryConfigURI, "labels", "", "Label category config URI")
	f.StringVar(&req.JobNamePrefix, "job-prefix", "", "Labeling job name prefix")
	f.StringVar(&req.LabelAttribute, "label-attribute", "", "Label attribute name")
	f.StringVar(&req.IntermediateFolderURI, "intermediate", "", "Intermediate folder URI")
	f.IntVar(&req.InputTotal, "input-total", 0, "Total input record count, 0 to count the manifest")
	f.IntVar(&req.MaxSelections, "max-selections", 0, "Records routed to humans")

	f.String("variant", "detection", "Task variant: detection or classification")
	f.String("alignment", "", "Alignment: filename or id")
	f.Float64("threshold", 0.5, "Auto-annotation confidence threshold")
	f.Int("fetch-workers", 8, "Concurrent prediction and image fetches")
	f.Uint64("seed", 0, "Selection seed, 0 for random")
	f.String("job-type", "", "Override the metadata type field")
	if err := bindFlags(c.v, f, map[string]string{
		"variant":       "pipeline.variant",
		"alignment":     "pipeline.alignment",
		"threshold":     "pipeline.threshold",
		"fetch-workers": "pipeline.fetchworkers",
		"seed":          "pipeline.seed",
		"job-type":      "pipeline.jobtype",
	}); err != nil {
		panic(err)
	}

	return cmd
}

// overrideRequest copies every request flag the user set into dst.
func overrideRequest(cmd *cobra.Command, dst *autolabel.Request, src autolabel.Request) {
	changed := cmd.Flags().Changed
	if changed("manifest") {
		dst.UnlabeledManifestURI = src.UnlabeledManifestURI
	}
	if changed("predictions") {
		dst.PredictionsURI = src.PredictionsURI
	}
	if changed("labels") {
		dst.LabelCategoryConfigURI = src.LabelCategoryConfigURI
	}
	if changed("job-prefix") {
		dst.JobNamePrefix = src.JobNamePrefix
	}
	if changed("label-attribute") {
		dst.LabelAttribute = src.LabelAttribute
	}
	if changed("intermediate") {
		dst.IntermediateFolderURI = src.IntermediateFolderURI
	}
	if changed("input-total") {
		dst.InputTotal = src.InputTotal
	}
	if changed("max-selections") {
		dst.MaxSelections = src.MaxSelections
	}
}

func (a *app) readJSON(ctx context.Context, raw string, v any) error {
	u, err := blobstore.ParseURI(raw)
	if err != nil {
		return err
	}
	data, err := a.router.Fetch(ctx, u)
	if err != nil {
		return err
	}
	return codec.Default.Unmarshal(data, v)
}

func writeJSON(w io.Writer, v any) error {
	data, err := codec.Default.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
