package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minhvu/faceclock/internal/classifier"
	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/corpus"
	"github.com/minhvu/faceclock/internal/descriptor"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a recognition model from the collected corpus",
	Long: `Trains a classifier on the descriptor corpus, validates it against a
held-out split and writes the model artifact when it passes the
acceptance policy.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("kind", "", "Learner kind: knn, linear, boost or mlp (default from config)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if kind := mustGetString(cmd, "kind"); kind != "" {
		cfg.Trainer.Learner = kind
	}

	extractor := descriptor.NewExtractor(cfg.Descriptor)
	store := corpus.NewStore(cfg.Data.CorpusPath, extractor.Dim())
	c, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}

	report, model, err := classifier.NewTrainer(cfg.Trainer).Train(c)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if err := classifier.SaveModel(cfg.Data.ModelPath, model); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}

	fmt.Printf("Trained %s model on %d samples (%d held out)\n", report.Kind, report.TrainSamples, report.TestSamples)
	fmt.Printf("  Train accuracy: %.3f\n", report.TrainAccuracy)
	fmt.Printf("  Test accuracy:  %.3f\n", report.TestAccuracy)
	fmt.Printf("  Threshold:      %.3f\n", report.RecommendedThreshold)
	fmt.Printf("  Identities:     %v\n", report.Classes)
	for _, warning := range report.Warnings {
		fmt.Printf("  Warning: %s\n", warning)
	}
	fmt.Printf("Model written to %s\n", cfg.Data.ModelPath)
	return nil
}
