package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iamthegreatdestroyer/shgat-engine/pkg/models"
)

var (
	scoreIntent string
	scoreLevel  int
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rank capabilities against an intent embedding",
	RunE: func(cmd *cobra.Command, args []string) error {
		intent, err := parseEmbedding(scoreIntent)
		if err != nil {
			return err
		}
		req := models.ScoreRequest{IntentEmbedding: intent}
		if cmd.Flags().Changed("level") {
			req.TargetLevel = &scoreLevel
		}
		resp, err := newClientFromFlags().score(context.Background(), req)
		if err != nil {
			return err
		}
		for _, item := range resp.Results {
			fmt.Printf("%-32s %.6f  level=%d  heads=%v\n", item.ID, item.Score, item.HierarchyLevel, item.PerHeadScores)
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreIntent, "intent", "", "comma-separated intent embedding (required)")
	scoreCmd.Flags().IntVar(&scoreLevel, "level", 0, "restrict scoring to one hierarchy level")
	_ = scoreCmd.MarkFlagRequired("intent")
}
