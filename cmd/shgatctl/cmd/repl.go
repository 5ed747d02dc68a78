package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/iamthegreatdestroyer/shgat-engine/pkg/models"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive shell for scoring and training against a live engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL()
	},
}

func historyFilePath() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return ".shgatctl_history"
	}
	dir := filepath.Join(cacheDir, "shgatctl")
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "history")
}

// runREPL is a small interactive loop over the same client the one-shot
// subcommands use: "score <intent>" and "train <intent> <capability> <label>"
// plus "exit"/"quit".
func runREPL() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "shgat> ",
		HistoryFile:       historyFilePath(),
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		return fmt.Errorf("shgatctl: readline init: %w", err)
	}
	defer rl.Close()

	c := newClientFromFlags()
	fmt.Printf("shgatctl repl — connected to %s (exit/Ctrl-D to quit)\n", serverURL)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		if err := dispatchREPLCommand(c, input); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func dispatchREPLCommand(c *client, input string) error {
	fields := strings.Fields(input)
	switch fields[0] {
	case "score":
		if len(fields) < 2 {
			return fmt.Errorf("usage: score <intent-embedding>")
		}
		intent, err := parseEmbedding(fields[1])
		if err != nil {
			return err
		}
		resp, err := c.score(context.Background(), models.ScoreRequest{IntentEmbedding: intent})
		if err != nil {
			return err
		}
		for _, item := range resp.Results {
			fmt.Printf("  %-32s %.6f  level=%d  heads=%v\n", item.ID, item.Score, item.HierarchyLevel, item.PerHeadScores)
		}
		return nil
	case "train":
		if len(fields) < 4 {
			return fmt.Errorf("usage: train <intent-embedding> <capability-id> <label>")
		}
		intent, err := parseEmbedding(fields[1])
		if err != nil {
			return err
		}
		label, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return fmt.Errorf("invalid label %q: %w", fields[3], err)
		}
		resp, err := c.train(context.Background(), models.TrainRequest{
			IntentEmbedding: intent,
			CapabilityID:    fields[2],
			Label:           label,
		})
		if err != nil {
			return err
		}
		if resp.Skipped {
			fmt.Println("  skipped: unknown capability")
			return nil
		}
		fmt.Printf("  loss=%.6f score=%.6f\n", resp.Loss, resp.Score)
		return nil
	case "help":
		fmt.Println("  score <intent-embedding>")
		fmt.Println("  train <intent-embedding> <capability-id> <label>")
		fmt.Println("  exit | quit")
		return nil
	default:
		return fmt.Errorf("unknown command %q (try: score, train, help)", fields[0])
	}
}
