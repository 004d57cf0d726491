package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minhvu/faceclock/internal/collector"
	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/corpus"
	"github.com/minhvu/faceclock/internal/descriptor"
	"github.com/minhvu/faceclock/internal/recognizer"
)

var collectCmd = &cobra.Command{
	Use:   "collect [identity] [frames-dir]",
	Short: "Collect face samples for an identity",
	Long: `Reads frames from a directory, runs each detected face region through
the quality gate, augments accepted samples and appends their descriptors
to the training corpus.`,
	Args: cobra.ExactArgs(2),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().Int("samples", 40, "Number of descriptors to collect")
	collectCmd.Flags().Bool("progress", true, "Show a progress bar")
	collectCmd.Flags().Float64("center-crop", 0, "Use a center crop of this fraction as the face region (0 = full frame)")
}

// frameDetector picks the face localization strategy for CLI runs.
func frameDetector(centerCrop float64) recognizer.Detector {
	if centerCrop > 0 {
		return recognizer.CenterCropDetector{Fraction: centerCrop}
	}
	return recognizer.FullFrameDetector{}
}

func runCollect(cmd *cobra.Command, args []string) error {
	identity := args[0]
	framesDir := args[1]

	cfg := config.Load()

	frames, err := recognizer.NewDirFrameSource(framesDir)
	if err != nil {
		return fmt.Errorf("opening frames directory: %w", err)
	}

	extractor := descriptor.NewExtractor(cfg.Descriptor)
	quality := descriptor.NewQualityGate(cfg.Quality)
	store := corpus.NewStore(cfg.Data.CorpusPath, extractor.Dim())

	c := collector.New(quality, extractor, store)
	result, err := c.Collect(cmd.Context(), frames, frameDetector(mustGetFloat64(cmd, "center-crop")), identity, collector.Options{
		TargetSamples: mustGetInt(cmd, "samples"),
		ShowProgress:  mustGetBool(cmd, "progress"),
	})
	if err != nil {
		return fmt.Errorf("collecting samples: %w", err)
	}

	fmt.Printf("Collected %d descriptors for %s (%d frames read)\n", result.Collected, identity, result.FramesRead)
	if result.SkippedQuality > 0 {
		fmt.Printf("  Skipped by quality gate: %d\n", result.SkippedQuality)
	}
	if result.SkippedExtraction > 0 {
		fmt.Printf("  Failed extraction: %d\n", result.SkippedExtraction)
	}
	fmt.Printf("Corpus: %d samples, %d identities\n", result.Corpus.Samples, result.Corpus.DistinctLabels)
	return nil
}
