package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iamthegreatdestroyer/shgat-engine/pkg/models"
)

var (
	insertToolID        string
	insertToolEmbedding string
)

var insertToolCmd = &cobra.Command{
	Use:   "insert-tool",
	Short: "Insert a leaf tool into the engine's hypergraph",
	RunE: func(cmd *cobra.Command, args []string) error {
		embedding, err := parseEmbedding(insertToolEmbedding)
		if err != nil {
			return err
		}
		c := newClientFromFlags()
		if err := c.insertTool(context.Background(), models.ToolRequest{ID: insertToolID, Embedding: embedding}); err != nil {
			return err
		}
		fmt.Printf("inserted tool %q\n", insertToolID)
		return nil
	},
}

var (
	insertCapID          string
	insertCapEmbedding   string
	insertCapMembers     string
	insertCapSuccessRate float64
)

var insertCapabilityCmd = &cobra.Command{
	Use:   "insert-capability",
	Short: "Insert a capability composed of tools and/or other capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		embedding, err := parseEmbedding(insertCapEmbedding)
		if err != nil {
			return err
		}
		members, err := parseMembers(insertCapMembers)
		if err != nil {
			return err
		}
		c := newClientFromFlags()
		req := models.CapabilityRequest{
			ID:          insertCapID,
			Embedding:   embedding,
			Members:     members,
			SuccessRate: insertCapSuccessRate,
		}
		if err := c.insertCapability(context.Background(), req); err != nil {
			return err
		}
		fmt.Printf("inserted capability %q with %d members\n", insertCapID, len(members))
		return nil
	},
}

func init() {
	insertToolCmd.Flags().StringVar(&insertToolID, "id", "", "tool ID (required)")
	insertToolCmd.Flags().StringVar(&insertToolEmbedding, "embedding", "", "comma-separated embedding, e.g. 0.1,0.2,0.3 (required)")
	_ = insertToolCmd.MarkFlagRequired("id")
	_ = insertToolCmd.MarkFlagRequired("embedding")

	insertCapabilityCmd.Flags().StringVar(&insertCapID, "id", "", "capability ID (required)")
	insertCapabilityCmd.Flags().StringVar(&insertCapEmbedding, "embedding", "", "comma-separated intrinsic embedding (required)")
	insertCapabilityCmd.Flags().StringVar(&insertCapMembers, "members", "", "comma-separated kind:id pairs, e.g. tool:search,capability:summarize")
	insertCapabilityCmd.Flags().Float64Var(&insertCapSuccessRate, "success-rate", 0.5, "initial empirical success rate in [0,1]")
	_ = insertCapabilityCmd.MarkFlagRequired("id")
	_ = insertCapabilityCmd.MarkFlagRequired("embedding")
}
