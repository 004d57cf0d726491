package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/corpus"
	"github.com/minhvu/faceclock/internal/descriptor"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect the training corpus",
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus sample counts per identity",
	RunE:  runCorpusStats,
}

func init() {
	corpusCmd.AddCommand(corpusStatsCmd)
	rootCmd.AddCommand(corpusCmd)
}

func runCorpusStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	extractor := descriptor.NewExtractor(cfg.Descriptor)
	store := corpus.NewStore(cfg.Data.CorpusPath, extractor.Dim())
	summary, err := store.Summary()
	if err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}

	fmt.Printf("Corpus: %s\n", cfg.Data.CorpusPath)
	fmt.Printf("  Samples:    %d\n", summary.Samples)
	fmt.Printf("  Identities: %d\n", summary.DistinctLabels)
	fmt.Printf("  Width:      %d\n", summary.Width)

	labels := make([]string, 0, len(summary.PerLabel))
	for label := range summary.PerLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Printf("  %-20s %d\n", label, summary.PerLabel[label])
	}
	return nil
}
