package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/autolabel"
)

func prepareCommand(c *cli) *cobra.Command {
	var req autolabel.PrepareRequest

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Write the unlabeled manifest for batch inference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.settings, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := a.pipeline.PrepareInference(ctx, req)
			a.exportMetrics(ctx, "autolabel_prepare")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ManifestURI, "manifest", "", "Input manifest URI")
	f.StringVar(&req.OutputURI, "output", "", "Output folder URI")
	f.StringVar(&req.LabelAttribute, "label-attribute", "", "Label attribute name")
	f.IntVar(&req.TopK, "top-k", 0, "Value of the k field added to each record, negative to omit")
	f.BoolVar(&req.CopyImages, "copy-images", false, "Copy unlabeled images next to the manifest")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func validationCommand(c *cli) *cobra.Command {
	var req autolabel.ValidationRequest

	cmd := &cobra.Command{
		Use:   "validation",
		Short: "Carve a validation set from human-labeled records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.settings, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := a.pipeline.CreateValidationSet(ctx, req)
			a.exportMetrics(ctx, "autolabel_validation")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ManifestURI, "manifest", "", "Labeled manifest URI")
	f.StringVar(&req.LabelAttribute, "label-attribute", "", "Label attribute name")
	f.IntVar(&req.InputTotal, "input-total", 0, "Total input record count, 0 to count the manifest")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func trainingCommand(c *cli) *cobra.Command {
	var req autolabel.TrainingRequest

	cmd := &cobra.Command{
		Use:   "training",
		Short: "Write the training manifest for the next model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.settings, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := a.pipeline.PrepareTraining(ctx, req)
			a.exportMetrics(ctx, "autolabel_training")
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ManifestURI, "manifest", "", "Labeled manifest URI")
	f.StringVar(&req.LabelAttribute, "label-attribute", "", "Label attribute name")
	f.StringVar(&req.JobNamePrefix, "job-prefix", "", "Training job name prefix")
	f.StringVar(&req.IntermediateFolderURI, "intermediate", "", "Intermediate folder URI")
	f.StringVar(&req.ValidationURI, "validation", "", "Validation manifest whose records are excluded")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}
