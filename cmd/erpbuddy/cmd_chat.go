package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avvvet/erpbuddy-assistant/internal/app"
	"github.com/avvvet/erpbuddy-assistant/internal/catalog"
	"github.com/avvvet/erpbuddy-assistant/internal/executor"
	"github.com/avvvet/erpbuddy-assistant/internal/handlers"
	"github.com/avvvet/erpbuddy-assistant/internal/metrics"
	"github.com/avvvet/erpbuddy-assistant/internal/models"
	"github.com/avvvet/erpbuddy-assistant/internal/session"
	"github.com/avvvet/erpbuddy-assistant/internal/sessionstore"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Start an interactive conversation. Commands are not sent anywhere:
the dry-run executor prints what would be dispatched.

Type "exit" or send EOF to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("user", "local", "user id checked against the permissions file")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	company, _ := cmd.Flags().GetString("company")
	user, _ := cmd.Flags().GetString("user")

	cat, err := catalog.OpenSQLite(cmd.Context(), cfg.CatalogDSN)
	if err != nil {
		return err
	}
	defer cat.Close()

	exec := &executor.DryRun{BaseURL: cfg.ReportsBaseURL}
	orch, err := app.NewOrchestrator(cfg, cat, exec, metrics.Nop{}, logger)
	if err != nil {
		return err
	}
	store := sessionstore.NewMemoryStore(0)
	handler := handlers.NewTurnHandler(orch, store, cfg.TurnLockTTL, logger, metrics.Nop{})

	out := cmd.OutOrStdout()
	sessionID := session.NewID()
	seen := 0
	fmt.Fprintln(out, `ERPbuddy chat. Type "exit" to leave.`)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		resp := handler.ProcessTurn(cmd.Context(), &models.TurnRequest{
			SessionID: sessionID,
			CompanyID: company,
			UserID:    user,
			Input:     line,
		})
		printResponse(out, resp)

		cmds := exec.Commands()
		for _, c := range cmds[seen:] {
			fmt.Fprintf(out, "  [dry-run] %s %+v\n", c.Kind(), c)
		}
		seen = len(cmds)
	}
}

func printResponse(out io.Writer, resp *models.TurnResponse) {
	fmt.Fprintln(out, resp.Reply)
	for _, extra := range []string{resp.NextQuestion, resp.ConfirmationMessage} {
		if extra != "" && !strings.Contains(resp.Reply, extra) {
			fmt.Fprintln(out, extra)
		}
	}
	if dl, ok := resp.Result.(models.DownloadResult); ok && dl.DownloadAction != nil {
		a := dl.DownloadAction
		target := a.URL
		if target == "" {
			target = fmt.Sprintf("%d bytes inline", len(a.Body))
		}
		fmt.Fprintf(out, "  [download] %s %s (%s)\n", a.Method, a.FileName, target)
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(out, "  [%s] %s\n", resp.ErrorCode, e)
	}
}
