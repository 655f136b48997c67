package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/catalog"
	"github.com/lepinkainen/bookfinder/internal/cmdutil"
	"github.com/lepinkainen/bookfinder/internal/errors"
	"github.com/lepinkainen/bookfinder/internal/fileutil"
	"github.com/lepinkainen/bookfinder/internal/search"
	"github.com/lepinkainen/bookfinder/internal/tui"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	newSearchService = search.NewFromConfig
	selectRecord     = tui.Select
	exportResults    = cmdutil.ExportSearchResults
)

// SearchCmd represents the search command
type SearchCmd struct {
	Query     string `arg:"" help:"Title, author or keywords to search for"`
	Sort      string `short:"s" help:"Result order" enum:"relevance,price_low,price_high,rating,new,discount" default:"relevance"`
	Format    string `help:"Output format" enum:"text,json,yaml" default:"text"`
	Output    string `short:"o" help:"Write results as JSON to this file instead of stdout"`
	Overwrite bool   `help:"Overwrite an existing output file"`
	Pick      bool   `help:"Pick a result interactively and add it to the catalog"`
	Uploader  string `help:"Uploader recorded for a picked book"`

	// Export flags
	ExportDB       bool   `help:"Export results to the Datasette database"`
	DatasetteURL   string `help:"Export to a remote Datasette instance instead of the local file"`
	DatasetteToken string `help:"API token for the remote Datasette instance"`
}

// searchOutput is the serialised form of a search.
type searchOutput struct {
	Query   string          `json:"query" yaml:"query"`
	Sort    string          `json:"sort" yaml:"sort"`
	Total   int             `json:"total" yaml:"total"`
	Results []book.Record   `json:"results" yaml:"results"`
	Sources []sourceSummary `json:"sources" yaml:"sources"`
}

type sourceSummary struct {
	Source     string `json:"source" yaml:"source"`
	Count      int    `json:"count" yaml:"count"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
}

func newSearchOutput(res *search.Result) searchOutput {
	out := searchOutput{
		Query:   res.Query,
		Sort:    string(res.Criterion),
		Total:   len(res.Records),
		Results: res.Records,
		Sources: make([]sourceSummary, 0, len(res.Sources)),
	}
	for _, sr := range res.Sources {
		summary := sourceSummary{
			Source:     string(sr.Source),
			Count:      len(sr.Records),
			DurationMS: sr.Duration.Milliseconds(),
		}
		if sr.Err != nil {
			summary.Error = sr.Err.Error()
		}
		out.Sources = append(out.Sources, summary)
	}
	return out
}

func (s *SearchCmd) Run() error {
	return withLibrary(func(lib *catalog.Library) error {
		ctx, stop := signalContext()
		defer stop()

		res, err := newSearchService(lib.Store).Search(ctx, s.Query, book.ParseCriterion(s.Sort))
		if err != nil {
			return err
		}

		if s.ExportDB || s.DatasetteURL != "" {
			if err := s.export(ctx, res); err != nil {
				return err
			}
		}

		if err := s.write(res); err != nil {
			return err
		}

		if !s.Pick {
			return nil
		}
		err = s.pick(ctx, lib, res)
		if errors.IsStopped(err) {
			slog.Info("Selection stopped")
			return nil
		}
		return err
	})
}

func (s *SearchCmd) export(ctx context.Context, res *search.Result) error {
	viper.Set("datasette.enabled", true)
	if s.DatasetteURL != "" {
		viper.Set("datasette.mode", "remote")
		viper.Set("datasette.remote_url", s.DatasetteURL)
		viper.Set("datasette.api_token", s.DatasetteToken)
	}
	return exportResults(ctx, res.Query, res.Records, time.Now())
}

func (s *SearchCmd) write(res *search.Result) error {
	outCfg := cmdutil.OutputConfig{Output: s.Output, ConfigKey: "search", Overwrite: s.Overwrite}
	if err := cmdutil.SetupOutputPath(&outCfg); err != nil {
		return err
	}

	out := newSearchOutput(res)
	if outCfg.Output != "" {
		written, err := fileutil.WriteJSONFile(out, outCfg.Output, outCfg.Overwrite)
		if err != nil {
			return err
		}
		if written {
			slog.Info("Search results written", "path", outCfg.Output, "count", out.Total)
		}
		return nil
	}

	switch s.Format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		printResults(out)
		return nil
	}
}

func printResults(out searchOutput) {
	if out.Total == 0 {
		printf("No results for %q\n", out.Query)
	}
	for i, rec := range out.Results {
		printf("%2d. %s by %s [%s]\n", i+1, rec.Title, rec.Author, rec.Source)
		if meta := resultMetadata(rec); meta != "" {
			printf("    %s\n", meta)
		}
	}
	for _, src := range out.Sources {
		if src.Error != "" {
			printf("! %s failed: %s\n", src.Source, src.Error)
		}
	}
}

func resultMetadata(rec book.Record) string {
	var parts []string
	if rec.PublishedDate != "" {
		parts = append(parts, rec.PublishedDate)
	}
	if rec.ISBN13 != "" {
		parts = append(parts, "ISBN "+rec.ISBN13)
	}
	if rec.Price != "" {
		parts = append(parts, rec.Price)
	}
	if rec.Rating > 0 {
		parts = append(parts, fmt.Sprintf("%.1f/5", rec.Rating))
	}
	if len(rec.Reviews) > 0 {
		parts = append(parts, fmt.Sprintf("%d reviews", len(rec.Reviews)))
	}
	if rec.Filename != "" {
		parts = append(parts, rec.Filename)
	}
	return strings.Join(parts, " | ")
}

func (s *SearchCmd) pick(ctx context.Context, lib *catalog.Library, res *search.Result) error {
	result, err := selectRecord(res.Query, res.Records)
	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	switch result.Action {
	case tui.ActionStopped:
		return errors.Stopped("selection")
	case tui.ActionSelected:
	default:
		slog.Info("No book selected")
		return nil
	}

	if result.Selection.Source == book.SourceUploaded {
		printf("%q is already in the catalog\n", result.Selection.Title)
		return nil
	}

	b, created, err := lib.Import(ctx, *result.Selection, s.Uploader)
	if err != nil {
		return err
	}
	if created {
		printf("Added #%d %s\n", b.ID, b.Title)
	} else {
		printf("Already cataloged as #%d %s\n", b.ID, b.Title)
	}
	return nil
}
