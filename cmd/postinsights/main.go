// Command postinsights generates and caches LinkedIn post insights.
//
// Usage:
//
//	postinsights serve    [-config file]
//	postinsights generate [-config file] -posts posts.json [-authors a,b] [-categories c,d] [-filters '{"k":"v"}'] [-top n] [-json]
//	postinsights cache list  [-config file]
//	postinsights cache clear [-config file]
//	postinsights trend    -file summary.md
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jonwraymond/postinsights/cache"
	"github.com/jonwraymond/postinsights/insight"
	"github.com/jonwraymond/postinsights/pipeline"
	"github.com/jonwraymond/postinsights/server"
)

const usage = `usage: postinsights <command> [flags]

commands:
  serve         run the HTTP API
  generate      generate insights for posts in a JSON file
  cache list    list cached insights
  cache clear   remove every cached insight
  trend         print the trend label of a summary file
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "serve":
		err = cmdServe(ctx, args[1:], stderr)
	case "generate":
		err = cmdGenerate(ctx, args[1:], stdout, stderr)
	case "cache":
		if len(args) < 2 {
			fmt.Fprint(stderr, usage)
			return 2
		}
		switch args[1] {
		case "list":
			err = cmdCacheList(ctx, args[2:], stdout, stderr)
		case "clear":
			err = cmdCacheClear(ctx, args[2:], stdout, stderr)
		default:
			fmt.Fprintf(stderr, "unknown cache command %q\n%s", args[1], usage)
			return 2
		}
	case "trend":
		err = cmdTrend(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "postinsights: %v\n", err)
		return 1
	}
}

var errUsage = errors.New("usage")

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("POSTINSIGHTS_CONFIG"), "path to a YAML config file")
	return fs, configPath
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

func withRuntime(ctx context.Context, configPath string, fn func(*runtime) error) error {
	rt, err := newRuntime(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.close(shutdownCtx)
	}()
	return fn(rt)
}

func cmdServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs, configPath := newFlagSet("serve", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	return withRuntime(ctx, *configPath, func(rt *runtime) error {
		srv := server.New(rt.pipeline, rt.chain, rt.health, rt.logger, server.Config{
			Addr:              rt.cfg.HTTPAddr,
			TopN:              rt.cfg.TopN,
			PrometheusMetrics: rt.cfg.Observe.Metrics.Exporter == "prometheus",
		})
		return srv.ListenAndServe(ctx)
	})
}

func readPosts(path string) ([]insight.Post, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var posts []insight.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, p := range posts {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func cmdGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("generate", stderr)
	postsPath := fs.String("posts", "", "JSON file holding an array of posts (required)")
	authors := fs.String("authors", "", "comma-separated authors the posts were selected for")
	categories := fs.String("categories", "", "comma-separated categories (default: every category in the posts)")
	filters := fs.String("filters", "", "JSON object of extra selection filters")
	top := fs.Int("top", 0, "posts analyzed per category (default from config)")
	asJSON := fs.Bool("json", false, "print outcomes as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *postsPath == "" {
		fmt.Fprintln(stderr, "generate: -posts is required")
		fs.Usage()
		return errUsage
	}

	posts, err := readPosts(*postsPath)
	if err != nil {
		return err
	}
	var filterMap map[string]any
	if *filters != "" {
		if err := json.Unmarshal([]byte(*filters), &filterMap); err != nil {
			return fmt.Errorf("parse -filters: %w", err)
		}
	}

	return withRuntime(ctx, *configPath, func(rt *runtime) error {
		n := *top
		if n <= 0 {
			n = rt.cfg.TopN
		}
		cats := splitCSV(*categories)
		if len(cats) == 0 {
			cats = insight.Categories(posts)
		}
		reqs := make([]pipeline.Request, 0, len(cats))
		for _, c := range cats {
			reqs = append(reqs, pipeline.Request{
				Category: c,
				Authors:  splitCSV(*authors),
				Filters:  filterMap,
				TopPosts: insight.TopPosts(posts, c, n),
			})
		}

		outcomes := rt.pipeline.RunBatch(ctx, reqs)
		if *asJSON {
			return writeOutcomesJSON(stdout, outcomes)
		}
		writeOutcomes(stdout, outcomes)
		return nil
	})
}

type outcomeJSON struct {
	Category   string           `json:"category"`
	Status     pipeline.Status  `json:"status"`
	FromCache  bool             `json:"from_cache"`
	Persisted  bool             `json:"persisted"`
	TrendLabel string           `json:"trend_label,omitempty"`
	Insights   *insight.Insight `json:"insights,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func writeOutcomesJSON(w io.Writer, outcomes []pipeline.Outcome) error {
	out := make([]outcomeJSON, len(outcomes))
	for i, o := range outcomes {
		out[i] = outcomeJSON{
			Category:   o.Category,
			Status:     o.Status,
			FromCache:  o.FromCache,
			Persisted:  o.Persisted,
			TrendLabel: o.TrendLabel,
			Insights:   o.Insight,
		}
		if o.Err != nil {
			out[i].Error = o.Err.Error()
		}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeOutcomes(w io.Writer, outcomes []pipeline.Outcome) {
	for i, o := range outcomes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s: %s", o.Category, o.Status)
		if o.OK() {
			fmt.Fprintf(w, " (%d posts", o.PostCount)
			if !o.Persisted {
				fmt.Fprint(w, ", not cached")
			}
			fmt.Fprint(w, ")")
		}
		fmt.Fprintln(w)
		if o.Err != nil {
			fmt.Fprintf(w, "error: %v\n", o.Err)
		}
		if o.TrendLabel != "" {
			fmt.Fprintf(w, "trend: %s\n", o.TrendLabel)
		}
		if o.Insight != nil {
			fmt.Fprintln(w, o.Insight.Summary)
		}
	}
}

func cmdCacheList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("cache list", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	return withRuntime(ctx, *configPath, func(rt *runtime) error {
		sum, err := rt.store.Summary(ctx)
		if err != nil {
			return err
		}
		writeSummary(stdout, sum)
		return nil
	})
}

func writeSummary(w io.Writer, sum cache.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tCATEGORY\tAUTHORS\tGENERATED")
	for _, f := range sum.Files {
		generated := ""
		if !f.GeneratedAt.IsZero() {
			generated = f.GeneratedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Filename, f.Category, strings.Join(f.Authors, ","), generated)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d cached in %s\n", sum.TotalCached, sum.Location)
}

func cmdCacheClear(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("cache clear", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	return withRuntime(ctx, *configPath, func(rt *runtime) error {
		if err := rt.store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "cleared %s\n", rt.store.Backend().Location())
		return nil
	})
}

func cmdTrend(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("trend", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "summary file to read (default: stdin)")
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		raw []byte
		err error
	)
	if *file == "" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*file)
	}
	if err != nil {
		return err
	}

	label, ok := insight.ExtractTrendLabel(string(raw))
	if !ok {
		return errors.New("no trend label found")
	}
	fmt.Fprintln(stdout, label)
	return nil
}
