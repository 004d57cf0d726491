package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/minhvu/faceclock/internal/attendance"
	"github.com/minhvu/faceclock/internal/classifier"
	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/descriptor"
	"github.com/minhvu/faceclock/internal/recognizer"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize [identity] [frames-dir]",
	Short: "Verify a claimed identity against the trained model",
	Long: `Runs the recognition gate over frames from a directory. The claimed
identity must match the model's prediction with sufficient confidence.
With --action the accepted recognition is recorded in the attendance
ledger; --demo computes the outcome without writing anything.`,
	Args: cobra.ExactArgs(2),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("action", "", "Ledger action on acceptance: check_in or check_out")
	recognizeCmd.Flags().String("position", "", "Position recorded with a check_in")
	recognizeCmd.Flags().Bool("demo", false, "Dry run: never write to the ledger")
	recognizeCmd.Flags().Float64("center-crop", 0, "Use a center crop of this fraction as the face region (0 = full frame)")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	identity := args[0]
	framesDir := args[1]

	action := mustGetString(cmd, "action")
	if action != "" && action != "check_in" && action != "check_out" {
		return fmt.Errorf("unknown action %q, want check_in or check_out", action)
	}

	cfg := config.Load()

	model, err := classifier.LoadModel(cfg.Data.ModelPath)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}

	frames, err := recognizer.NewDirFrameSource(framesDir)
	if err != nil {
		return fmt.Errorf("opening frames directory: %w", err)
	}

	gate := recognizer.NewGate(
		model,
		frameDetector(mustGetFloat64(cmd, "center-crop")),
		descriptor.NewExtractor(cfg.Descriptor),
		descriptor.NewQualityGate(cfg.Quality),
		cfg.Recognition,
	)

	claim := recognizer.Claim{
		Identity: identity,
		Admin:    mustGetBool(cmd, "demo"),
	}
	outcome := gate.Run(cmd.Context(), frames, claim)

	fmt.Printf("State:      %s\n", outcome.State)
	if outcome.Reason != "" {
		fmt.Printf("Reason:     %s\n", outcome.Reason)
	}
	fmt.Printf("Message:    %s\n", outcome.Message)
	if outcome.Label != "" {
		fmt.Printf("Label:      %s (confidence %.3f)\n", outcome.Label, outcome.Confidence)
	}
	fmt.Printf("Attempts:   %d\n", outcome.Attempts)

	if !outcome.Accepted() || action == "" {
		return nil
	}
	if claim.Admin {
		fmt.Printf("Demo mode: %s not recorded\n", action)
		return nil
	}

	ledger := attendance.NewLedger(cfg.Data.LedgerDir)
	var event *attendance.Event
	switch action {
	case "check_in":
		event, err = ledger.CheckIn(identity, time.Now(), mustGetString(cmd, "position"))
	case "check_out":
		event, err = ledger.CheckOut(identity, time.Now())
	}
	if err != nil {
		return fmt.Errorf("recording %s: %w", action, err)
	}

	if event.CheckedOut() {
		fmt.Printf("Checked out %s at %s (%.2f hours)\n", event.Name, event.CheckOut.Format("15:04:05"), event.WorkedHours)
	} else {
		fmt.Printf("Checked in %s at %s\n", event.Name, event.CheckIn.Format("15:04:05"))
	}
	return nil
}
