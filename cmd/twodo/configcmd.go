package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var configProviders = []string{"openai", "anthropic", "google", "xai", "deepseek", "mistral", "cohere", "perplexity", "github"}

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
	}

	setKeyCmd := &cobra.Command{
		Use:   "set-key PROVIDER KEY",
		Short: "Store an API key",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSetKey,
	}

	setPrefCmd := &cobra.Command{
		Use:   "set-pref NAME VALUE",
		Short: "Set a preference (default_model, max_parallel_tasks, load_only_free_models, developer_context)",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSetPref,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE:  runConfigShow,
	}

	configCmd.AddCommand(setKeyCmd, setPrefCmd, showCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.SetAPIKey(args[0], args[1]); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("%s %s key in %s\n", successStyle.Render("Saved"), args[0], path)
	return nil
}

func runConfigSetPref(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.SetPreference(args[0], args[1]); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("%s %s = %s\n", successStyle.Render("Saved"), args[0], args[1])
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Configuration"))
	fmt.Println(mutedStyle.Render(path))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "database\t%s\n", cfg.General.DatabasePath)
	fmt.Fprintf(w, "schedules\t%s\n", cfg.General.SchedulesDir)
	fmt.Fprintf(w, "default_model\t%s\n", cfg.Preferences.DefaultModel)
	fmt.Fprintf(w, "max_parallel_tasks\t%d\n", cfg.Preferences.MaxParallelTasks)
	fmt.Fprintf(w, "load_only_free_models\t%t\n", cfg.Preferences.LoadOnlyFreeModels)
	fmt.Fprintf(w, "command_timeout\t%s\n", cfg.CommandTimeout())
	if cfg.GitHub.Repo != "" {
		fmt.Fprintf(w, "github_repo\t%s\n", cfg.GitHub.Repo)
	}
	fmt.Fprintf(w, "desktop_notifications\t%t\n", cfg.Notifications.Desktop)
	fmt.Fprintf(w, "slack\t%t\n", cfg.Notifications.SlackWebhook != "")
	fmt.Fprintf(w, "log_level\t%s\n", cfg.Logging.Level)
	fmt.Fprintln(w)
	for _, p := range configProviders {
		fmt.Fprintf(w, "%s\t%s\n", p, maskKey(cfg.APIKey(p)))
	}
	return w.Flush()
}

// maskKey hides all but the last four characters of a key
func maskKey(k string) string {
	if k == "" {
		return mutedStyle.Render("not set")
	}
	if len(k) <= 8 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}
