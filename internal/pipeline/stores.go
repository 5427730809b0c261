package pipeline

import (
	"fmt"
	"os"
	"time"

	"bczsl/internal/config"
	"bczsl/internal/embedding"
	"bczsl/internal/embedding/openai"
	"bczsl/internal/embedding/tfidf"
	"bczsl/internal/embedding/voyage"
	"bczsl/internal/randsrc"
	"bczsl/internal/vectorstore"
	"bczsl/internal/vectorstore/file"
	"bczsl/internal/vectorstore/memory"
	"bczsl/internal/vectorstore/pinecone"
	"bczsl/internal/vectorstore/qdrant"
)

// OpenStore returns the class-embedding store selected by embeddings.store.
func OpenStore(cfg *config.Config) (vectorstore.Storage, error) {
	e := cfg.Embeddings
	switch e.Store {
	case "file", "":
		return file.NewStorage(cfg.Inference.EmbeddingsPath), nil
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        e.QdrantURL,
			APIKey:     os.Getenv(e.QdrantAPIKeyEnv),
			Collection: e.QdrantCollection,
			Timeout:    time.Duration(e.TimeoutSecs) * time.Second,
		}), nil
	case "pinecone":
		st, err := pinecone.NewStorage(pinecone.Config{
			APIKeyEnv: e.PineconeAPIKeyEnv,
			Host:      e.PineconeHost,
			Namespace: e.PineconeNamespace,
			Labels:    ClassLabels(cfg),
		})
		if err != nil {
			return nil, fmt.Errorf("pinecone store init failed: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown embeddings store: %s", e.Store)
	}
}

// OpenEmbedder returns the class-token embedder selected by embeddings.source.
func OpenEmbedder(cfg *config.Config, src *randsrc.Source) (embedding.LabelEmbedder, error) {
	e := cfg.Embeddings
	switch e.Source {
	case "corpus", "tfidf", "":
		return tfidf.NewEmbedder(e.VectorSize, e.Window, src), nil
	case "openai":
		client, err := openai.NewClient(openai.Config{
			BaseURL:    e.OpenAIBaseURL,
			APIKeyEnv:  e.OpenAIAPIKeyEnv,
			Model:      e.OpenAIModel,
			Dimensions: e.VectorSize,
			Timeout:    time.Duration(e.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	case "voyage":
		v, err := voyage.New(voyage.Config{
			APIKeyEnv:  e.VoyageAPIKeyEnv,
			Model:      e.VoyageModel,
			Dimensions: e.VectorSize,
		})
		if err != nil {
			return nil, fmt.Errorf("voyage embedder init failed: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown embeddings source: %s", e.Source)
	}
}
