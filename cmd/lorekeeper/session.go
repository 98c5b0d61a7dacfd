package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lorekeeper/internal/config"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/request"
	"github.com/kailas-cloud/lorekeeper/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/lorekeeper/internal/logger"
)

// openSession builds the object graph for a one-shot shell command.
// The logger stays quiet unless --log-level asks for more.
func openSession(cmd *cobra.Command) (*app, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(logpkg.EnvCLI, viper.GetString(keyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return buildApp(commandContext(cmd), cfg, logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newRequest applies the configured retrieval defaults to a question.
func newRequest(question string, r config.RetrievalConfig) (request.Request, error) {
	return request.New(question, r.K, r.DistanceThreshold, r.FilteringEnabled(), r.MaxIterations)
}

// withRequestID tags the context logger with a fresh request id,
// the same field the HTTP middleware logs.
func withRequestID(ctx context.Context, logger *zap.Logger) context.Context {
	return logpkg.ContextWithLogger(ctx, logger.With(zap.String("request_id", uuid.NewString())))
}

// printResult writes the ranked passages, one per line.
func printResult(w io.Writer, res result.Result) {
	if res.IsEmpty() {
		fmt.Fprintln(w, "No passages found.")
		return
	}
	for i, h := range res.Hits() {
		name := h.Name()
		if name == "" {
			name = h.ID()
		}
		kind := h.Metadata().Type()
		if kind == "" {
			kind = "text"
		}
		fmt.Fprintf(w, "%2d. %-40s %-14s %.4f  %s\n", i+1, name, kind, h.Distance(), h.ID())
	}
	s := res.Summary()
	fmt.Fprintf(w, "\n%d passages, %d iterations, %d rejected, stop: %s, cutoff: %s\n",
		res.Len(), s.Iterations, s.Rejected, s.StopReason, s.Cutoff)
}

// printTrace writes the retrieval trace as an indented block.
func printTrace(w io.Writer, res result.Result) {
	fmt.Fprintln(w, "\nTrace:")
	for _, line := range res.Trace() {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

// quitWords end an interactive session.
var quitWords = map[string]struct{}{"quit": {}, "exit": {}, "q": {}}

// runLoop reads questions line by line until EOF or a quit word.
// A failing question is reported and the loop continues.
func runLoop(ctx context.Context, in io.Reader, out io.Writer, handle func(context.Context, string) error) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if _, ok := quitWords[strings.ToLower(question)]; ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := handle(ctx, question); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}
