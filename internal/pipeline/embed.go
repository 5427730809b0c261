package pipeline

import (
	"context"
	"fmt"

	"bczsl/internal/config"
	"bczsl/internal/corpus"
	"bczsl/internal/domain"
	"bczsl/internal/embedding"
	"bczsl/internal/logging"
	"bczsl/internal/randsrc"
	"bczsl/internal/vectorstore"
)

// EmbedResult describes a stored class-embedding table.
type EmbedResult struct {
	Source string
	Labels []string
	Dim    int
	Table  *embedding.Table
	// VocabularySize is the number of corpus tokens learned by corpus-trained
	// sources; 0 for remote sources.
	VocabularySize int
	// Location is the file backing the store, when it has one.
	Location string
	// Nearest maps each class to its most similar other class, as answered
	// by the store after saving.
	Nearest map[string]domain.ScoredLabel
}

// RunEmbed builds the class-embedding table for embeddings.labels and saves
// it to the configured store. Corpus-trained sources are prepared from
// embeddings.corpus_path first.
func RunEmbed(ctx context.Context, cfg *config.Config, opts Options) (*EmbedResult, error) {
	log := logging.Phase("embed")
	labels := ClassLabels(cfg)
	if len(labels) == 0 {
		return nil, fmt.Errorf("embed: embeddings.labels is empty: %w", domain.ErrEmptyTable)
	}
	src := randsrc.New(cfg.Seed)
	emb, err := OpenEmbedder(cfg, src)
	if err != nil {
		return nil, err
	}

	var sentences [][]string
	if cfg.Embeddings.Source == "corpus" || cfg.Embeddings.Source == "tfidf" || cfg.Embeddings.Source == "" {
		sentences, err = corpus.NewSplitter().Load(cfg.Embeddings.CorpusPath)
		if err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
		log.Info("corpus loaded", "corpus.sentences", len(sentences), logging.KeyPath, cfg.Embeddings.CorpusPath)
	}
	if err := emb.Prepare(sentences); err != nil {
		return nil, fmt.Errorf("embed: prepare %s: %w", emb.Name(), err)
	}
	vocab := 0
	if v, ok := emb.(interface{ Vocabulary() []string }); ok {
		vocab = len(v.Vocabulary())
		log.Info("embedder prepared", "embedder", emb.Name(), "vocabulary", vocab)
	}

	table, err := embedding.BuildTable(ctx, emb, labels)
	if err != nil {
		return nil, err
	}
	store := opts.Store
	if store == nil {
		if store, err = OpenStore(cfg); err != nil {
			return nil, err
		}
	}
	if err := store.Save(ctx, table); err != nil {
		return nil, fmt.Errorf("embed: save: %w", err)
	}
	location := ""
	if p, ok := store.(interface{ Path() string }); ok {
		location = p.Path()
	}
	log.Info("class embeddings stored", "embedder", emb.Name(), "store", cfg.Embeddings.Store,
		"classes", table.Len(), "dim", table.Dim(), logging.KeyPath, location)

	nearest, err := nearestClasses(ctx, store, table)
	if err != nil {
		return nil, fmt.Errorf("embed: store search: %w", err)
	}
	return &EmbedResult{
		Source:         emb.Name(),
		Labels:         labels,
		Dim:            table.Dim(),
		Table:          table,
		VocabularySize: vocab,
		Location:       location,
		Nearest:        nearest,
	}, nil
}

// nearestClasses queries the store with every saved vector and records the
// closest other class. A class whose own vector does not rank first is
// logged; duplicated embeddings make that possible.
func nearestClasses(ctx context.Context, store vectorstore.Storage, table *embedding.Table) (map[string]domain.ScoredLabel, error) {
	log := logging.Phase("embed")
	nearest := make(map[string]domain.ScoredLabel, table.Len())
	for _, label := range table.Labels() {
		vec, _ := table.Vector(label)
		res, err := vectorstore.Search(ctx, store, vec, 2)
		if err != nil {
			return nil, err
		}
		if len(res) == 0 || res[0].Label != label {
			log.Warn("stored class is not its own best match", "class", label)
		}
		for _, r := range res {
			if r.Label != label {
				nearest[label] = r
				log.Debug("nearest class", "class", label, "neighbour", r.Label, "similarity", r.Score)
				break
			}
		}
	}
	return nearest, nil
}
