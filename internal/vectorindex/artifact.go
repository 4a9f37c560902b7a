package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wolfman30/hospital-voicebot/internal/embedding"
	"github.com/wolfman30/hospital-voicebot/internal/knowledge"
)

var (
	// ErrCorruptArtifact means the embeddings file is internally inconsistent.
	ErrCorruptArtifact = errors.New("vectorindex: corrupt embeddings artifact")
	// ErrDimensionMismatch means a vector does not have the artifact's dimensionality.
	ErrDimensionMismatch = errors.New("vectorindex: embedding dimension mismatch")
	// ErrModelMismatch means the query embedder is not the model that produced the artifact.
	ErrModelMismatch = errors.New("vectorindex: embedding model mismatch")
)

// Artifact is the on-disk embeddings file produced offline.
type Artifact struct {
	Model              string            `json:"model"`
	EmbeddingDimension int               `json:"embedding_dimension"`
	TotalChunks        int               `json:"total_chunks"`
	GeneratedAt        time.Time         `json:"generated_at"`
	Chunks             []knowledge.Chunk `json:"chunks"`
}

// Validate checks the artifact's own bookkeeping.
func (a *Artifact) Validate() error {
	if a.Model == "" {
		return fmt.Errorf("%w: model is empty", ErrCorruptArtifact)
	}
	if a.TotalChunks != len(a.Chunks) {
		return fmt.Errorf("%w: total_chunks=%d but %d chunks present", ErrCorruptArtifact, a.TotalChunks, len(a.Chunks))
	}
	if len(a.Chunks) > 0 && a.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: embedding_dimension must be positive", ErrCorruptArtifact)
	}
	for _, c := range a.Chunks {
		if len(c.Embedding) != a.EmbeddingDimension {
			return fmt.Errorf("%w: chunk %s has %d values, want %d", ErrDimensionMismatch, c.ID, len(c.Embedding), a.EmbeddingDimension)
		}
	}
	return nil
}

// LoadArtifact reads and validates an embeddings file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: read %s: %w", path, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArtifact, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// WriteArtifact writes the artifact atomically, creating parent directories.
func WriteArtifact(path string, a *Artifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("vectorindex: create dir: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("vectorindex: marshal artifact: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("vectorindex: write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("vectorindex: replace artifact: %w", err)
	}
	return nil
}

// Generate embeds every chunk of the knowledge base.
func Generate(ctx context.Context, kb *knowledge.Base, e embedding.Embedder, opts embedding.BatchOptions) (*Artifact, error) {
	chunks := kb.ExtractChunks()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := embedding.EmbedBatches(ctx, e, texts, opts)
	if err != nil {
		return nil, err
	}

	dim := 0
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
		if i == 0 {
			dim = len(vecs[i])
		} else if len(vecs[i]) != dim {
			return nil, fmt.Errorf("%w: chunk %s has %d values, want %d", ErrDimensionMismatch, chunks[i].ID, len(vecs[i]), dim)
		}
	}

	return &Artifact{
		Model:              e.Model(),
		EmbeddingDimension: dim,
		TotalChunks:        len(chunks),
		GeneratedAt:        time.Now().UTC(),
		Chunks:             chunks,
	}, nil
}
