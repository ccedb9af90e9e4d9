// Package engine orchestrates the indexing pipeline and the query
// engine over the session store: chunking, parallel per-unit extraction
// and embedding, serialized graph merges, community detection, and
// multi-facet scored queries.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/chunker"
	"github.com/graphweave/graphweave/pkg/common"
	"github.com/graphweave/graphweave/pkg/community"
	"github.com/graphweave/graphweave/pkg/graph"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/store"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxParallel = 8
	defaultEncoding    = "cl100k_base"

	// commitTries covers one retry of a failed merge commit;
	// providerTries one retry of a failed extraction or embedding call.
	commitTries   = 2
	providerTries = 2
)

// Engine is the top-level entry point. It owns a session store and a
// shared token counter; the pluggable capabilities live in each
// session's configuration.
type Engine struct {
	store       *store.Store
	counter     chunker.TokenCounter
	maxParallel int
}

// Params configures an Engine. Store is required. A nil TokenCounter
// selects the tiktoken cl100k_base encoding.
type Params struct {
	Store        *store.Store
	TokenCounter chunker.TokenCounter
	MaxParallel  int
}

func New(params Params) (*Engine, error) {
	if params.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	counter := params.TokenCounter
	if counter == nil {
		var err error
		counter, err = chunker.NewTiktokenCounter(defaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("engine: token counter init: %w", err)
		}
	}
	maxParallel := params.MaxParallel
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &Engine{
		store:       params.Store,
		counter:     counter,
		maxParallel: maxParallel,
	}, nil
}

// EnsureSession creates the session for id when absent, validating the
// configuration first. It reports whether this call created it.
func (e *Engine) EnsureSession(id string, cfg store.SessionConfig) (bool, error) {
	_, created, err := e.store.GetOrCreate(id, cfg)
	return created, err
}

// CloseSession flushes pending merges and releases the session.
func (e *Engine) CloseSession(id string) error {
	return e.store.Delete(id)
}

// Sessions returns all live session ids.
func (e *Engine) Sessions() []string {
	return e.store.IDs()
}

// SessionStats returns the accumulated statistics for a session.
func (e *Engine) SessionStats(id string) (common.IndexStats, error) {
	sess, err := e.store.Get(id)
	if err != nil {
		return common.IndexStats{}, err
	}
	return sess.Stats()
}

// Close shuts down the engine and every session.
func (e *Engine) Close() {
	e.store.Close()
}

// unitWork is the per-unit pipeline result. A unit whose embedding
// failed is dropped; a unit whose extraction failed is kept without
// candidates. Both count as rejected in the statistics. A fatal error
// marks an embedder contract violation and aborts the whole batch.
type unitWork struct {
	unit       common.TextUnit
	extraction graph.Extraction
	dropped    bool
	rejected   bool
	fatal      error
}

// IndexDocuments chunks, extracts, embeds, and merges docs into the
// session's graph. Documents are processed in batches of batchSize
// (all at once when batchSize <= 0); within a batch the per-unit
// stages run in parallel while merges are serialized per session.
// Per-unit failures are isolated and counted; a batch whose units all
// fail entirely aborts the call with an IndexingError. The returned
// statistics cover this call only.
func (e *Engine) IndexDocuments(ctx context.Context, sessionID string, docs []common.Document, batchSize int) (common.IndexStats, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return common.IndexStats{}, err
	}
	cfg := sess.Config()

	ch, err := chunker.New(chunker.Params{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Counter:      e.counter,
	})
	if err != nil {
		return common.IndexStats{}, &store.ConfigError{Field: "chunking", Reason: err.Error()}
	}

	start := time.Now()
	var total common.IndexStats

	if batchSize <= 0 {
		batchSize = len(docs)
	}
	for from := 0; from < len(docs); from += batchSize {
		to := util.Min(from+batchSize, len(docs))
		delta, err := e.indexBatch(ctx, sess, ch, docs[from:to])
		if err != nil {
			return total, err
		}
		total.Add(delta)
	}

	elapsed := time.Since(start)
	total.IndexingTimeSeconds = elapsed.Seconds()
	sess.AddIndexingTime(elapsed)

	if cfg.AutoDetectCommunities {
		detected, err := e.DetectCommunities(ctx, sessionID)
		if err != nil {
			return total, err
		}
		total.CommunitiesDetected = detected
	}

	return total, nil
}

func (e *Engine) indexBatch(ctx context.Context, sess *store.Session, ch *chunker.Chunker, docs []common.Document) (common.IndexStats, error) {
	cfg := sess.Config()

	work := make([]*unitWork, 0)
	for _, doc := range docs {
		docID := doc.ID
		if docID == "" {
			id, err := gonanoid.New()
			if err != nil {
				return common.IndexStats{}, err
			}
			docID = id
		}
		for _, chunk := range ch.Split(doc.Content) {
			unitID, err := gonanoid.New()
			if err != nil {
				return common.IndexStats{}, err
			}
			work = append(work, &unitWork{
				unit: common.TextUnit{
					ID:         unitID,
					DocumentID: docID,
					Index:      chunk.Index,
					Content:    chunk.Content,
					TokenCount: chunk.TokenCount,
				},
			})
		}
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(e.maxParallel)
	for _, w := range work {
		w := w
		eg.Go(func() error {
			e.processUnit(ectx, cfg, w)
			return ectx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return common.IndexStats{}, &IndexingError{SessionID: sess.ID(), Reason: "batch cancelled", Err: err}
	}

	for _, w := range work {
		if w.fatal != nil {
			return common.IndexStats{}, &IndexingError{SessionID: sess.ID(), Reason: "embedder contract violation", Err: w.fatal}
		}
	}

	units := make([]common.TextUnit, 0, len(work))
	batch := make([]graph.Extraction, 0, len(work))
	rejected := 0
	droppedAll := len(work) > 0
	for _, w := range work {
		if w.rejected {
			rejected++
		}
		if w.dropped {
			continue
		}
		droppedAll = false
		units = append(units, w.unit)
		batch = append(batch, w.extraction)
	}
	if droppedAll {
		return common.IndexStats{}, &IndexingError{
			SessionID: sess.ID(),
			Reason:    fmt.Sprintf("all %d text units in batch failed", len(work)),
		}
	}

	var delta common.IndexStats
	err := util.RetryErr(commitTries, func() error {
		d, err := sess.Commit(len(docs), units, rejected, batch)
		if err != nil {
			if errors.Is(err, store.ErrSessionClosed) {
				return err
			}
			return &IndexingError{SessionID: sess.ID(), Reason: "graph merge failed", Err: err}
		}
		delta = d
		return nil
	})
	if err != nil {
		return common.IndexStats{}, err
	}
	return delta, nil
}

// processUnit runs extraction and embedding for one text unit. An
// extraction failure keeps the unit but contributes no candidates; an
// embedding failure drops the unit entirely.
func (e *Engine) processUnit(ctx context.Context, cfg store.SessionConfig, w *unitWork) {
	entities, relationships, err := util.Retry2WithContext(ctx, providerTries,
		func(ctx context.Context) ([]common.ExtractedEntity, []common.ExtractedRelationship, error) {
			return cfg.Extractor.Extract(ctx, w.unit.Content)
		})
	if err != nil {
		logger.Warn("extraction failed, keeping unit without candidates",
			"unit", w.unit.ID, "error", err)
		w.rejected = true
		entities, relationships = nil, nil
	}

	texts := make([]string, 0, len(entities)+1)
	texts = append(texts, w.unit.Content)
	for _, ent := range entities {
		texts = append(texts, entityText(ent))
	}

	// A dimension mismatch is a contract violation by the embedder, not
	// a transient fault. It aborts the batch and is never retried.
	var contract error
	vecs, err := util.RetryWithContext(ctx, providerTries,
		func(ctx context.Context) ([][]float32, error) {
			if contract != nil {
				return nil, contract
			}
			out, err := cfg.Embedder.Embed(ctx, texts)
			if err != nil {
				if errors.Is(err, ai.ErrDimensionMismatch) {
					contract = err
				}
				return nil, err
			}
			dims := cfg.Embedder.Dimensions()
			for _, v := range out {
				if len(v) != dims {
					contract = fmt.Errorf("got %d dimensions, want %d: %w", len(v), dims, ai.ErrDimensionMismatch)
					return nil, contract
				}
			}
			return out, nil
		})
	if err != nil {
		if errors.Is(err, ai.ErrDimensionMismatch) {
			w.fatal = err
			return
		}
		logger.Warn("embedding failed, dropping unit", "unit", w.unit.ID, "error", err)
		w.rejected = true
		w.dropped = true
		return
	}
	if len(vecs) != len(texts) {
		logger.Warn("embedding batch size mismatch, dropping unit", "unit", w.unit.ID)
		w.rejected = true
		w.dropped = true
		return
	}

	w.unit.Embedding = vecs[0]
	w.extraction = graph.Extraction{
		UnitID:        w.unit.ID,
		Entities:      entities,
		EntityVectors: vecs[1:],
		Relationships: relationships,
	}
}

func entityText(ent common.ExtractedEntity) string {
	if ent.Description == "" {
		return ent.Title
	}
	return ent.Title + ": " + ent.Description
}

// DetectCommunities runs a detection pass over a consistent snapshot of
// the session graph, embeds the community summaries, and replaces the
// session's communities with the result. It returns the number of
// communities detected.
func (e *Engine) DetectCommunities(ctx context.Context, sessionID string) (int, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return 0, err
	}
	cfg := sess.Config()

	entities, edges, err := sess.GraphSnapshot()
	if err != nil {
		return 0, err
	}

	detector := community.NewDetector(cfg.Community)
	groups := detector.Detect(entities, edges)
	communities := community.Summarize(entities, groups)

	if len(communities) > 0 {
		summaries := make([]string, len(communities))
		for i, c := range communities {
			summaries[i] = c.Summary
		}
		vecs, err := cfg.Embedder.Embed(ctx, summaries)
		if err != nil {
			return 0, &IndexingError{SessionID: sessionID, Reason: "community summary embedding failed", Err: err}
		}
		if len(vecs) != len(communities) {
			return 0, &IndexingError{SessionID: sessionID, Reason: "community summary embedding batch size mismatch"}
		}
		for i := range communities {
			communities[i].Embedding = vecs[i]
		}
	}

	if err := sess.SetCommunities(communities); err != nil {
		return 0, err
	}
	return len(communities), nil
}

// QueryOptions selects the facets and the per-facet result bound.
type QueryOptions struct {
	TopK               int
	IncludeEntities    bool
	IncludeTextUnits   bool
	IncludeCommunities bool
}

// Query resolves text against a session: one query embedding, then
// per-facet cosine ranking. Disabled facets stay empty and are never
// scored; with every facet disabled the embedder is not called at all.
// Querying an empty session yields empty results, not an error.
func (e *Engine) Query(ctx context.Context, sessionID string, text string, opts QueryOptions) (result common.QueryResult, err error) {
	result = common.QueryResult{
		Entities:    []common.ScoredEntity{},
		TextUnits:   []common.ScoredTextUnit{},
		Communities: []common.ScoredCommunity{},
	}

	if opts.TopK < 0 {
		return result, &QueryError{Reason: fmt.Sprintf("top_k must not be negative, got %d", opts.TopK)}
	}

	sess, err := e.store.Get(sessionID)
	if err != nil {
		return result, err
	}

	start := time.Now()
	defer func() {
		result.ExecutionTimeMS = float64(time.Since(start).Microseconds()) / 1000.0
	}()

	if !opts.IncludeEntities && !opts.IncludeTextUnits && !opts.IncludeCommunities {
		return result, nil
	}
	if opts.TopK == 0 {
		return result, nil
	}

	empty, err := sess.IsEmpty()
	if err != nil {
		return result, err
	}
	if empty {
		return result, nil
	}

	queryVec, err := ai.EmbedSingle(ctx, sess.Config().Embedder, text)
	if err != nil {
		return result, &QueryError{Reason: "query embedding failed", Err: err}
	}

	if opts.IncludeEntities {
		scored, err := sess.SearchEntities(queryVec, opts.TopK)
		if err != nil {
			return result, err
		}
		result.Entities = scored
	}
	if opts.IncludeTextUnits {
		scored, err := sess.SearchTextUnits(queryVec, opts.TopK)
		if err != nil {
			return result, err
		}
		result.TextUnits = scored
	}
	if opts.IncludeCommunities {
		scored, err := sess.SearchCommunities(queryVec, opts.TopK)
		if err != nil {
			return result, err
		}
		result.Communities = scored
	}

	return result, nil
}
