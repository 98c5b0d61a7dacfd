package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the retrieved passages",
	Long: `Retrieve grounding passages and generate an answer with the configured chat model.

Without a question, ask starts an interactive session; type quit, exit or q to leave.

Examples:
  lorekeeper ask "How many hit dice does a troll have?"
  lorekeeper ask --show-context "What do I need to hit AC 4 as a level 7 fighter?"
  lorekeeper ask`,
	RunE: runAsk,
}

func init() {
	addDisplayFlags(askCmd, "print the context sent to the model")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if a.answers == nil {
		return errNoGeneration
	}

	out := cmd.OutOrStdout()
	handle := func(ctx context.Context, question string) error {
		return askOnce(withRequestID(ctx, a.logger), a, out, question)
	}

	if len(args) > 0 {
		return handle(commandContext(cmd), strings.Join(args, " "))
	}

	fmt.Fprintln(out, "lorekeeper interactive session. Type quit, exit or q to leave.")
	return runLoop(commandContext(cmd), cmd.InOrStdin(), out, handle)
}

func askOnce(ctx context.Context, a *app, out io.Writer, question string) error {
	req, err := newRequest(question, a.cfg.Retrieval)
	if err != nil {
		return err
	}

	ans, err := a.answers.Ask(ctx, &req)
	if err != nil {
		return err
	}

	if viper.GetBool(keyTrace) {
		printTrace(out, ans.Result)
	}
	if viper.GetBool(keyShowContext) && ans.Context != "" {
		fmt.Fprintf(out, "\nContext:\n\n%s\n", ans.Context)
	}
	fmt.Fprintf(out, "\n%s\n", ans.Text)
	return nil
}
