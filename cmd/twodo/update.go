package main

import (
	"fmt"

	"github.com/hochfrequenz/twodo/internal/updater"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=v1.2.3"
var version = "dev"

var (
	updateCheckOnly bool
	updateRepo      string
)

func init() {
	rootCmd.Version = version

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update twodo to the latest release",
		RunE:  runUpdate,
	}
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "only check whether an update is available")
	updateCmd.Flags().StringVar(&updateRepo, "repo", updater.DefaultRepo, "GitHub repository publishing releases")

	rootCmd.AddCommand(versionCmd, updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	u := updater.New(updateRepo)
	rel, err := u.Latest(cmd.Context())
	if err != nil {
		return err
	}

	if !updater.NeedsUpdate(version, rel.TagName) {
		fmt.Printf("%s (%s)\n", successStyle.Render("Up to date"), version)
		return nil
	}
	fmt.Printf("Update available: %s -> %s\n", version, warningStyle.Render(rel.TagName))
	if updateCheckOnly {
		return nil
	}

	fmt.Println(mutedStyle.Render("Downloading " + updater.ArchiveName(rel.TagName)))
	if err := u.SelfUpdate(cmd.Context(), rel.TagName); err != nil {
		return err
	}
	fmt.Printf("%s to %s\n", successStyle.Render("Updated"), rel.TagName)
	return nil
}
