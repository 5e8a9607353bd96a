package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var checkEventPath string

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one drift check for a change event",
	Long: `Run a single drift evaluation for one cloud change event.

The event is a JSON document in cloud audit-log shape. DriftGuard
creates a speculative plan run, waits for the plan, decides the drift
verdict, notifies Slack and writes the history record, then prints the
check result as JSON.`,
	Example: `  driftguard check --event event.json      # Read event from a file
  cat event.json | driftguard check --event -  # Read event from stdin`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkEventPath, "event", "e", "", "Path to event JSON, or - for stdin")
	_ = checkCmd.MarkFlagRequired("event")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	evt, err := readEvent(checkEventPath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.orch.CheckEvent(ctx, evt)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode check result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// readEvent loads the event document from a file, or from stdin when the
// path is "-".
func readEvent(path string, stdin io.Reader) (map[string]any, error) {
	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- path is intentional user input
	}
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}

	var evt map[string]any
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	return evt, nil
}
