package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/litcast/internal/domain"
	"github.com/ahrav/litcast/internal/ports"
)

// DefaultMinTextLength is the shortest cleaned complaint text accepted.
// Shorter output almost always means a scanned PDF with no text layer.
const DefaultMinTextLength = 500

var (
	ErrCorpusNil    = errors.New("corpus store cannot be nil")
	ErrFetcherNil   = errors.New("document fetcher cannot be nil")
	ErrExtractorNil = errors.New("text extractor cannot be nil")
	ErrTruthNil     = errors.New("ground truth extractor cannot be nil")
)

// BuilderOptions tunes a DatasetBuilder. Zero values select defaults.
type BuilderOptions struct {
	MinTextLength int
	// MaxCases limits processing to the first MaxCases corpus entries.
	MaxCases    int
	Concurrency int
	Metrics     ports.MetricsCollector
	// Now stamps DatasetMetadata.CreatedAt.
	Now func() time.Time
}

// DatasetBuilder turns corpus cases into evaluation records. Input text comes
// only from each case's complaint document; ground truth comes only from the
// release's full text.
type DatasetBuilder struct {
	corpus    ports.CorpusStore
	fetcher   ports.DocumentFetcher
	extractor ports.TextExtractor
	truth     ports.GroundTruthExtractor
	opts      BuilderOptions
}

// NewDatasetBuilder validates its collaborators and fills option defaults.
func NewDatasetBuilder(
	corpus ports.CorpusStore,
	fetcher ports.DocumentFetcher,
	extractor ports.TextExtractor,
	truth ports.GroundTruthExtractor,
	opts BuilderOptions,
) (*DatasetBuilder, error) {
	switch {
	case corpus == nil:
		return nil, ErrCorpusNil
	case fetcher == nil:
		return nil, ErrFetcherNil
	case extractor == nil:
		return nil, ErrExtractorNil
	case truth == nil:
		return nil, ErrTruthNil
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = DefaultMinTextLength
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxCases < 0 {
		return nil, fmt.Errorf("%w: max cases must not be negative", domain.ErrInvalidConfiguration)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DatasetBuilder{
		corpus:    corpus,
		fetcher:   fetcher,
		extractor: extractor,
		truth:     truth,
		opts:      opts,
	}, nil
}

// Build processes the corpus and returns the dataset. Per-case failures
// become skip records; only a corpus error or cancellation fails the build.
func (b *DatasetBuilder) Build(ctx context.Context) (*domain.Dataset, error) {
	log := clog.FromContext(ctx)

	cases, err := b.corpus.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus: %w", err)
	}
	if b.opts.MaxCases > 0 && len(cases) > b.opts.MaxCases {
		cases = cases[:b.opts.MaxCases]
	}
	log.With("cases", len(cases), "concurrency", b.opts.Concurrency).Info("building dataset")

	ds := &domain.Dataset{Records: make(map[string]domain.EvaluationRecord)}
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for _, c := range cases {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, skip := b.ProcessCase(gctx, c)
			if err := gctx.Err(); err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if skip != nil {
				ds.Skipped = append(ds.Skipped, *skip)
			} else {
				ds.Records[rec.CaseID] = *rec
			}
			done++
			if done%10 == 0 || done == len(cases) {
				log.With("done", done, "total", len(cases), "records", len(ds.Records), "skipped", len(ds.Skipped)).
					Info("dataset progress")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(ds.Skipped, func(a, b domain.SkipRecord) int {
		return domain.CompareReleaseIDs(a.CaseID, b.CaseID)
	})

	resolved := ds.Resolved()
	ds.Metadata = domain.DatasetMetadata{
		CreatedAt:      b.opts.Now().UTC(),
		TotalProcessed: len(cases),
		ResolvedCount:  len(resolved),
		OngoingCount:   len(ds.Records) - len(resolved),
		SkippedCount:   len(ds.Skipped),
	}
	ds.Statistics = domain.ComputeStatistics(resolved)

	log.With("resolved", ds.Metadata.ResolvedCount, "ongoing", ds.Metadata.OngoingCount,
		"skipped", ds.Metadata.SkippedCount).Info("dataset built")
	return ds, nil
}

// ProcessCase builds the record for one case. Exactly one of the results
// is non-nil.
func (b *DatasetBuilder) ProcessCase(ctx context.Context, c domain.CaseRecord) (*domain.EvaluationRecord, *domain.SkipRecord) {
	start := time.Now()
	log := clog.FromContext(ctx).With("case_id", c.ReleaseNumber)

	skip := func(reason domain.SkipReason, url string, err error) (*domain.EvaluationRecord, *domain.SkipRecord) {
		log.With("reason", reason).Debugf("skipping case: %v", err)
		b.count("dataset_cases_skipped")
		return nil, &domain.SkipRecord{
			CaseID: c.ReleaseNumber,
			Title:  c.Title,
			Reason: reason,
			Detail: err.Error(),
			URL:    url,
		}
	}

	complaint, ok := c.Complaint()
	if !ok {
		return skip(domain.SkipNoComplaintURL, "", errors.New("no complaint in supporting documents"))
	}

	doc, err := b.fetcher.Fetch(ctx, complaint.URL)
	if err != nil {
		return skip(domain.SkipFetchFailed, complaint.URL, err)
	}

	text, err := b.extractor.Extract(ctx, doc)
	if err != nil {
		return skip(domain.SkipParseFailed, complaint.URL, err)
	}
	if n := utf8.RuneCountInString(text); n < b.opts.MinTextLength {
		return skip(domain.SkipParseFailed, complaint.URL,
			fmt.Errorf("extracted text too short (%d chars), likely a scanned document", n))
	}

	rec := &domain.EvaluationRecord{
		CaseID:      c.ReleaseNumber,
		InputText:   text,
		GroundTruth: b.truth.Extract(ctx, c.FullText),
		Metadata: domain.CaseMetadata{
			ReleaseDate:  c.ReleaseDate,
			Title:        c.Title,
			ComplaintURL: complaint.URL,
			CaseURL:      c.URL,
			Court:        c.Court,
			Respondents:  c.Respondents,
			Charges:      c.Charges,
		},
	}
	if b.opts.Metrics != nil {
		b.opts.Metrics.RecordLatency("build_case", time.Since(start), map[string]string{"case_id": c.ReleaseNumber})
	}
	b.count("dataset_cases_built")
	return rec, nil
}

func (b *DatasetBuilder) count(metric string) {
	if b.opts.Metrics != nil {
		b.opts.Metrics.RecordCounter(metric, 1, nil)
	}
}
