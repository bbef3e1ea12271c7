package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lettervault/lettervault/internal/llm"
	"github.com/lettervault/lettervault/internal/metrics"
	"github.com/lettervault/lettervault/internal/service"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the letters in an interactive terminal loop",
	Long: `Start an interactive question-answering session. Every answer is
grounded in passages retrieved from the ingested letters, with the
source years listed below it.

Type "exit" or "quit" to leave, or press Ctrl+D.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := initLLM(true); err != nil {
		return err
	}

	collector := metrics.NewCollector()
	search := newSearchService()
	search.SetMetrics(collector)
	chat := service.NewChatService(model, search, logger)
	chat.SetMetrics(collector)
	defer printSessionStats(collector)

	sess := chat.NewSession()
	logger.Info("chat session started", "session", sess.ID)

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	theme := defaultTheme

	if interactive {
		fmt.Println("Ask about the shareholder letters. Type 'exit' to leave.")
		fmt.Println()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print(theme.statusStyle().Render("you> "))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Println()
			return nil
		}

		question := strings.TrimSpace(scanner.Text())
		switch question {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := chat.Ask(cmd.Context(), sess, question)
		if err != nil {
			if errors.Is(err, llm.ErrFatalAPI) {
				return err
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		fmt.Println()
		fmt.Println(answer.Text)
		if len(answer.Sources) > 0 {
			fmt.Println()
			fmt.Println(theme.hintStyle().Render("Sources used:"))
			for _, src := range answer.Sources {
				fmt.Println(theme.hintStyle().Render(fmt.Sprintf("  - %s (%d)", src.Name, src.Year)))
			}
		}
		fmt.Println()
	}
}

// printSessionStats summarizes the session's LLM and search usage.
func printSessionStats(collector *metrics.Collector) {
	snap := collector.Snapshot()
	if len(snap.Operations) == 0 {
		return
	}

	hint := defaultTheme.hintStyle()
	fmt.Println(hint.Render("Session stats:"))
	if op, ok := snap.Operations[metrics.OpGenerate]; ok {
		line := fmt.Sprintf("  LLM calls: %d, avg %.0fms", op.Count, op.AvgTimeMs)
		if op.InputTokens > 0 || op.OutputTokens > 0 {
			line += fmt.Sprintf(", tokens in/out: %d/%d", op.InputTokens, op.OutputTokens)
		}
		fmt.Println(hint.Render(line))
	}
	if op, ok := snap.Operations[metrics.OpSearch]; ok {
		fmt.Println(hint.Render(fmt.Sprintf("  Searches: %d, avg %.0fms", op.Count, op.AvgTimeMs)))
	}
}
