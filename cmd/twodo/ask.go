package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hochfrequenz/twodo/internal/interrupt"
	"github.com/hochfrequenz/twodo/internal/router"
	"github.com/spf13/cobra"
)

var askExplain bool

func init() {
	askCmd := &cobra.Command{
		Use:   "ask PROMPT...",
		Short: "Send a prompt to the best available model",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	askCmd.Flags().BoolVar(&askExplain, "explain", false, "show which model was picked and why")
	rootCmd.AddCommand(askCmd)

	modelsCmd := &cobra.Command{
		Use:   "models [PROMPT...]",
		Short: "List available models, ranked for a prompt when one is given",
		RunE:  runModels,
	}
	rootCmd.AddCommand(modelsCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interrupt.Context(cmd.Context(), a.logger)
	defer stop()

	r, err := a.router(ctx)
	if err != nil {
		return err
	}

	prompt := strings.Join(args, " ")
	if askExplain {
		if m, err := r.SelectModel(prompt); err == nil {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("selected %s (%s)", m.Name, m.Provider)))
		}
	}

	res := r.RouteAndProcess(ctx, prompt, "")
	stop()

	if res.Interrupted() {
		fmt.Println(warningStyle.Render(res.Text))
		return nil
	}
	if !res.OK() {
		fmt.Println(errorStyle.Render(res.Text))
		return res.Err
	}
	fmt.Println(titleStyle.Render(res.Model))
	fmt.Println(responseStyle.Render(res.Text))
	return nil
}

func runModels(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.router(cmd.Context())
	if err != nil {
		return err
	}
	catalog := r.Catalog()
	if len(catalog) == 0 {
		fmt.Println(warningStyle.Render(router.NoModelsMessage))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if len(args) == 0 {
		fmt.Fprintln(w, "MODEL\tPROVIDER\tSTRENGTHS\tSPEED\tFREE")
		for _, m := range catalog {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n",
				m.Name, m.Provider, strings.Join(m.Strengths, ","), m.SpeedRating, m.Free)
		}
		return w.Flush()
	}

	features := router.Analyze(strings.Join(args, " "))
	fmt.Fprintln(w, "SCORE\tMODEL\tPROVIDER")
	for _, s := range router.Rank(catalog, features) {
		fmt.Fprintf(w, "%.2f\t%s\t%s\n", s.Score, s.Model.Name, s.Model.Provider)
	}
	return w.Flush()
}
