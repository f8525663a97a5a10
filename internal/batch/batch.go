// Package batch hashes many documents in parallel and finds near-duplicate
// pairs among them.
package batch

import (
	"context"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hoangsonww/fuzzyhash/internal/cache"
	"github.com/hoangsonww/fuzzyhash/internal/ctph"
	"github.com/hoangsonww/fuzzyhash/internal/monitoring"
)

// Document is one input. When Data is nil, Load is called from a worker to
// fetch the content.
type Document struct {
	Name string
	Data []byte
	Load func() ([]byte, error)
}

// Result holds the digest of one document, or the error that prevented it.
type Result struct {
	Name   string
	Digest string
	Size   int
	Err    error
}

type Options struct {
	Workers int          // defaults to GOMAXPROCS
	Cache   *cache.Cache // optional
}

// Hasher runs a ctph.Hasher over batches. Hashers are safe for concurrent use.
type Hasher struct {
	h       *ctph.Hasher
	workers int
	cache   *cache.Cache
	metrics *monitoring.Metrics
}

func New(h *ctph.Hasher, opts Options) *Hasher {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Hasher{
		h:       h,
		workers: workers,
		cache:   opts.Cache,
		metrics: monitoring.GetMetrics(),
	}
}

// HashAll hashes docs with at most Workers documents in flight. Results are
// in input order. A failing document does not stop the batch; its error is
// carried in its Result. HashAll returns early only when ctx is done.
func (b *Hasher) HashAll(ctx context.Context, docs []Document) ([]Result, error) {
	results := make([]Result, len(docs))
	logger := monitoring.WithField("component", "batch")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := range docs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.hashOne(docs[i])
			if results[i].Err != nil {
				logger.WithError(results[i].Err).Warnf("Failed to hash %s", docs[i].Name)
			}
			return nil
		})
	}

	// gctx is always done once Wait returns; only the caller's ctx counts.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Hasher) hashOne(doc Document) Result {
	res := Result{Name: doc.Name}

	data := doc.Data
	if data == nil && doc.Load != nil {
		var err error
		if data, err = doc.Load(); err != nil {
			b.metrics.RecordError("input")
			res.Err = err
			return res
		}
	}
	res.Size = len(data)

	start := time.Now()
	compute := func() string { return b.h.Compute(data) }
	if b.cache != nil {
		key := cache.BytesKey(b.h.WindowSize(), b.h.DigestSize(), int(b.h.Precision()), data)
		res.Digest = b.cache.GetOrCompute(key, compute)
	} else {
		res.Digest = compute()
	}
	b.metrics.RecordHashed(uint64(len(data)), time.Since(start))
	return res
}

// Pair is two documents whose digests are at least as similar as the
// threshold passed to Pairs. A sorts before B.
type Pair struct {
	A, B  string
	Score float64
}

// Pairs compares every two successful results and returns those scoring at
// least threshold and above zero, best first, ties ordered by name.
func Pairs(results []Result, threshold float64) []Pair {
	type parsed struct {
		name string
		d    ctph.Digest
	}
	var ok []parsed
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		d, err := ctph.ParseDigest(r.Digest)
		if err != nil {
			continue
		}
		ok = append(ok, parsed{r.Name, d})
	}

	metrics := monitoring.GetMetrics()
	var pairs []Pair
	for i := 0; i < len(ok); i++ {
		for j := i + 1; j < len(ok); j++ {
			metrics.RecordComparison()
			score := ok[i].d.Similarity(ok[j].d)
			if score <= 0 || score < threshold {
				continue
			}
			a, b := ok[i].name, ok[j].name
			if b < a {
				a, b = b, a
			}
			pairs = append(pairs, Pair{A: a, B: b, Score: score})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Score != pairs[j].Score {
			return pairs[i].Score > pairs[j].Score
		}
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}
