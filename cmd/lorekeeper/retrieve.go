package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	answeruc "github.com/kailas-cloud/lorekeeper/internal/usecase/answer"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <question>",
	Short: "Show the passages retrieved for a question",
	Long: `Run retrieval only and print the ranked passages with their distances.

Examples:
  lorekeeper retrieve "What is the armor class of an owlbear?"
  lorekeeper retrieve -k 5 --trace "Compare a red dragon and a blue dragon"
  lorekeeper retrieve --show-context --no-filter "Which spells affect undead?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	addDisplayFlags(retrieveCmd, "print the formatted context block")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	a, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	req, err := newRequest(strings.Join(args, " "), a.cfg.Retrieval)
	if err != nil {
		return err
	}

	ctx := withRequestID(commandContext(cmd), a.logger)
	res, err := a.retrieval.Retrieve(ctx, &req)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	out := cmd.OutOrStdout()
	printResult(out, res)
	if viper.GetBool(keyTrace) {
		printTrace(out, res)
	}
	if viper.GetBool(keyShowContext) && !res.IsEmpty() {
		fmt.Fprintf(out, "\nContext:\n\n%s\n", answeruc.FormatContext(res.Hits()))
	}
	return nil
}
