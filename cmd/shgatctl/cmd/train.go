package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iamthegreatdestroyer/shgat-engine/pkg/models"
)

var (
	trainID           string
	trainIntent       string
	trainCapabilityID string
	trainLabel        float64
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Submit one online training example (intent, chosen capability, outcome label)",
	RunE: func(cmd *cobra.Command, args []string) error {
		intent, err := parseEmbedding(trainIntent)
		if err != nil {
			return err
		}
		req := models.TrainRequest{
			ID:              trainID,
			IntentEmbedding: intent,
			CapabilityID:    trainCapabilityID,
			Label:           trainLabel,
		}
		resp, err := newClientFromFlags().train(context.Background(), req)
		if err != nil {
			return err
		}
		if resp.Skipped {
			fmt.Println("skipped: unknown capability")
			return nil
		}
		fmt.Printf("loss=%.6f score=%.6f\n", resp.Loss, resp.Score)
		for name, norm := range resp.GradientNorms {
			fmt.Printf("  grad[%s]=%.6f\n", name, norm)
		}
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainID, "id", "", "example ID (optional, generated if omitted)")
	trainCmd.Flags().StringVar(&trainIntent, "intent", "", "comma-separated intent embedding (required)")
	trainCmd.Flags().StringVar(&trainCapabilityID, "capability", "", "target capability ID (required)")
	trainCmd.Flags().Float64Var(&trainLabel, "label", 1.0, "outcome label, 1.0 success or 0.0 failure")
	_ = trainCmd.MarkFlagRequired("intent")
	_ = trainCmd.MarkFlagRequired("capability")
}
