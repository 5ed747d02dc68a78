// Package bootstrap loads tool and capability definitions from a manifest
// and a directory of .capability.md files and inserts them into a freshly
// constructed engine, generalizing the agent-manifest/agent-file loading
// machinery this codebase historically used for a different domain.
package bootstrap

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
	"gopkg.in/yaml.v3"
)

// ManifestConfig is the structure of capabilities-manifest.yaml: the tool
// inventory plus the ordered list of capability files to load. Capability
// files must be loaded in an order where every member is already known, so
// the manifest's order is authoritative rather than directory iteration
// order.
type ManifestConfig struct {
	Version     string       `yaml:"version"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Tools       []ToolConfig `yaml:"tools"`
	Capabilities []string    `yaml:"capabilities"` // ordered list of .capability.md file names
}

// ToolConfig is one tool entry in the manifest. Embedding is optional; when
// omitted it is derived deterministically from ID (see deriveEmbedding).
type ToolConfig struct {
	ID        string    `yaml:"id"`
	Embedding []float64 `yaml:"embedding"`
}

// LoadManifest parses a capabilities-manifest.yaml file.
func LoadManifest(path string) (*ManifestConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: read manifest: %w", err)
	}
	var m ManifestConfig
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("bootstrap: parse manifest: %w", err)
	}
	return &m, nil
}

// CapabilityFileMetadata is the YAML frontmatter of a .capability.md file.
type CapabilityFileMetadata struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description"`
	Tools       []string `yaml:"tools"`
	Capabilities []string `yaml:"capabilities"`
	SuccessRate float64  `yaml:"success_rate"`
	Embedding   []float64 `yaml:"embedding"`
}

// LoadCapabilityFile loads one capability definition from a .capability.md
// file. The file has YAML frontmatter (delimited by "---" lines) followed
// by free-form Markdown documentation, which is not inspected; the engine
// has no use for prose beyond the frontmatter.
func LoadCapabilityFile(filePath string) (*CapabilityFileMetadata, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: read capability file: %w", err)
	}
	meta, _, err := parseFrontmatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: parse frontmatter from %s: %w", filePath, err)
	}
	return meta, nil
}

func parseFrontmatter(content string) (*CapabilityFileMetadata, string, error) {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "---" {
		return nil, "", fmt.Errorf("missing frontmatter delimiter at start")
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, "", fmt.Errorf("missing closing frontmatter delimiter")
	}
	var meta CapabilityFileMetadata
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &meta); err != nil {
		return nil, "", fmt.Errorf("failed to parse YAML frontmatter: %w", err)
	}
	return &meta, strings.Join(lines[end+1:], "\n"), nil
}

var capabilityFileRE = regexp.MustCompile(`\.capability\.md$`)

// LoadAllCapabilityFiles loads every .capability.md file in dir, in
// directory order. Callers that need a dependency-safe load order should
// prefer the manifest's explicit Capabilities list.
func LoadAllCapabilityFiles(dir string) ([]CapabilityFileMetadata, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: read capability directory: %w", err)
	}
	var out []CapabilityFileMetadata
	for _, entry := range entries {
		if entry.IsDir() || !capabilityFileRE.MatchString(entry.Name()) {
			continue
		}
		meta, err := LoadCapabilityFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, *meta)
	}
	return out, nil
}

// deriveEmbedding deterministically derives an embedding_dim vector from id
// when a manifest/capability file omits one, via an FNV-seeded RNG. This
// keeps fixture and example manifests short while still giving every tool
// and capability a distinct, reproducible position in embedding space.
func deriveEmbedding(id string, embeddingDim int) []float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	v := make([]float64, embeddingDim)
	for i := range v {
		v[i] = rng.Float64()*2 - 1
	}
	return v
}

// Seed inserts every tool from the manifest, then every capability named in
// manifest.Capabilities (loaded from capabilityDir), into e, in manifest
// order. A capability file naming a member not yet inserted is a definition
// error the manifest author must fix (spec invariant: members must already
// exist), surfaced immediately rather than retried or reordered.
func Seed(e *shgat.Engine, manifest *ManifestConfig, capabilityDir string, embeddingDim int) error {
	for _, t := range manifest.Tools {
		embedding := t.Embedding
		if len(embedding) == 0 {
			embedding = deriveEmbedding(t.ID, embeddingDim)
		}
		if err := e.InsertTool(t.ID, embedding); err != nil {
			return fmt.Errorf("bootstrap: insert tool %q: %w", t.ID, err)
		}
	}

	for _, fileName := range manifest.Capabilities {
		meta, err := LoadCapabilityFile(filepath.Join(capabilityDir, fileName))
		if err != nil {
			return err
		}
		members := make([]shgat.Member, 0, len(meta.Tools)+len(meta.Capabilities))
		for _, id := range meta.Tools {
			members = append(members, shgat.Member{Kind: shgat.MemberTool, ID: id})
		}
		for _, id := range meta.Capabilities {
			members = append(members, shgat.Member{Kind: shgat.MemberCapability, ID: id})
		}
		embedding := meta.Embedding
		if len(embedding) == 0 {
			embedding = deriveEmbedding(meta.ID, embeddingDim)
		}
		successRate := meta.SuccessRate
		if successRate == 0 {
			successRate = 0.5
		}
		if err := e.InsertCapability(meta.ID, embedding, members, successRate); err != nil {
			return fmt.Errorf("bootstrap: insert capability %q: %w", meta.ID, err)
		}
	}
	return nil
}
