package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show account status and survival metrics",
	Long: `Synchronise the wallet balance (when exchange credentials are configured)
and print the account together with runway days, ruin probability and mood.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the account so that no trade can be executed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetLocked(cmd, true)
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetLocked(cmd, false)
	},
}

var resetDayCmd = &cobra.Command{
	Use:   "reset-day",
	Short: "Reset today's loss and trade counters",
	Args:  cobra.NoArgs,
	RunE:  runResetDay,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(resetDayCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()

	view, err := rt.app.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("读取账户状态失败: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), view)
}

func runSetLocked(cmd *cobra.Command, locked bool) error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()

	acct, err := rt.app.SetLocked(cmd.Context(), locked, "cli")
	if err != nil {
		return fmt.Errorf("更新锁定状态失败: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), acct)
}

func runResetDay(cmd *cobra.Command, args []string) error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()

	acct, err := rt.app.ResetDay(cmd.Context())
	if err != nil {
		return fmt.Errorf("重置日内计数失败: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), acct)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
