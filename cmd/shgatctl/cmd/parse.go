package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iamthegreatdestroyer/shgat-engine/pkg/models"
)

// parseEmbedding parses a comma-separated list of floats, e.g. "0.1,0.2,0.3".
func parseEmbedding(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("embedding must not be empty")
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid embedding component %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseMembers parses "kind:id,kind:id" pairs, e.g. "tool:search,capability:summarize".
func parseMembers(s string) ([]models.MemberRef, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]models.MemberRef, 0, len(parts))
	for _, p := range parts {
		kindID := strings.SplitN(strings.TrimSpace(p), ":", 2)
		if len(kindID) != 2 {
			return nil, fmt.Errorf("invalid member %q, expected kind:id", p)
		}
		kind := strings.TrimSpace(kindID[0])
		if kind != "tool" && kind != "capability" {
			return nil, fmt.Errorf("invalid member kind %q, expected tool or capability", kind)
		}
		out = append(out, models.MemberRef{Kind: kind, ID: strings.TrimSpace(kindID[1])})
	}
	return out, nil
}
