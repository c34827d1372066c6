package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avvvet/erpbuddy-assistant/internal/app"
	"github.com/avvvet/erpbuddy-assistant/internal/dates"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <text>...",
	Short: "Print the intent and inline parameters found in a sentence",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

var datesCmd = &cobra.Command{
	Use:   "dates <text>...",
	Short: "Print the dates found in a sentence",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDates,
}

func init() {
	rootCmd.AddCommand(classifyCmd, datesCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	classifier, err := app.NewClassifier(cfg)
	if err != nil {
		return err
	}

	res := classifier.Classify(strings.Join(args, " "))
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runDates(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	found := dates.Extract(text)
	if len(found) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no dates found")
		return nil
	}
	for _, d := range found {
		fmt.Fprintln(cmd.OutOrStdout(), dates.Format(d))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "normalized: %q\n", dates.Clean(text))
	return nil
}
