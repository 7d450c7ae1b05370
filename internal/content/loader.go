// Package content loads the two markdown documents the viewer shows and
// turns them into rendered HTML plus sidebar sections.
package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/parser"
)

// ErrLoadFailure is returned when either document could not be fetched or
// parsed. A load either fully succeeds or fails with this error.
var ErrLoadFailure = errors.New("documentation load failed")

// UserMessage is the only failure text ever shown to the reader.
const UserMessage = "Failed to load the documentation. Please try refreshing."

// Fetcher retrieves a raw document by path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Paths are the fixed fetch paths of the two content sources.
type Paths struct {
	Primary   string
	Reference string
}

// Path returns the fetch path for src.
func (p Paths) Path(src doctree.ContentSource) string {
	if src == doctree.Reference {
		return p.Reference
	}
	return p.Primary
}

// Result is a fully populated load.
type Result struct {
	Content   doctree.ContentMap
	Sections  []doctree.Section  // Primary sections, then reference sections
	Documents []doctree.Document // Indexed like doctree.Sources
}

// Document returns the loaded document for src.
func (r *Result) Document(src doctree.ContentSource) doctree.Document {
	for _, d := range r.Documents {
		if d.Source == src {
			return d
		}
	}
	return doctree.Document{Source: src}
}

// Loader fetches and parses both content sources.
type Loader struct {
	fetcher   Fetcher
	converter *parser.Converter
	paths     Paths
	stats     *LoadStats
	log       *slog.Logger
}

func NewLoader(fetcher Fetcher, converter *parser.Converter, paths Paths, log *slog.Logger) *Loader {
	return &Loader{
		fetcher:   fetcher,
		converter: converter,
		paths:     paths,
		stats:     NewLoadStats(time.Hour),
		log:       log,
	}
}

// LoadAll fetches both documents concurrently and waits for both to finish.
// The first failure cancels the other fetch; the returned error then wraps
// ErrLoadFailure and no partial result is returned.
func (l *Loader) LoadAll(ctx context.Context) (*Result, error) {
	l.log.Info("starting to load all markdown content")
	defer l.log.Info("content loading finished")

	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	docs := make([]doctree.Document, len(doctree.Sources))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i, src := range doctree.Sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := l.fetchMarkdown(ctx, src, l.paths.Path(src))
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			docs[i] = doc
		}()
	}
	wg.Wait()

	if firstErr != nil {
		l.log.Error("a critical error occurred while loading content", "error", firstErr)
		l.stats.Record(time.Since(start), true)
		return nil, fmt.Errorf("%w: %w", ErrLoadFailure, firstErr)
	}

	res := &Result{Documents: docs}
	for _, doc := range docs {
		l.log.Debug("processing sections", "source", doc.Source)
		res.Content = res.Content.With(doc.Source, doc.HTML)
		res.Sections = append(res.Sections, parser.ExtractSections(doc.Raw, doc.Source)...)
	}
	l.log.Info("extracted sections for the sidebar", "count", len(res.Sections))
	l.stats.Record(time.Since(start), false)
	return res, nil
}

// Stats reports load latencies over the last hour.
func (l *Loader) Stats() StatsSnapshot {
	return l.stats.Snapshot()
}

func (l *Loader) fetchMarkdown(ctx context.Context, src doctree.ContentSource, path string) (doc doctree.Document, err error) {
	log := l.log.With("source", src, "path", path)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse %s: %v", path, r)
		}
	}()

	log.Debug("attempting to fetch")
	raw, err := l.fetcher.Fetch(ctx, path)
	if err != nil {
		log.Error("failed to fetch", "error", err)
		return doctree.Document{}, err
	}
	log.Debug("fetched", "bytes", len(raw))

	out, err := l.converter.Convert(raw)
	if err != nil {
		return doctree.Document{}, fmt.Errorf("parse %s: %w", path, err)
	}
	log.Debug("parsed content")

	return doctree.Document{
		Source: src,
		Path:   path,
		Raw:    string(raw),
		HTML:   out.HTML,
		Title:  out.Title,
	}, nil
}
