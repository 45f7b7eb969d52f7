package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/jessedrg/cbd-boutique/internal/audit"
	"github.com/jessedrg/cbd-boutique/internal/catalog"
	"github.com/jessedrg/cbd-boutique/internal/config"
	"github.com/jessedrg/cbd-boutique/internal/inspect"
	"github.com/jessedrg/cbd-boutique/internal/pages"
	"github.com/jessedrg/cbd-boutique/internal/publish"
	"github.com/jessedrg/cbd-boutique/internal/seoindex"
	"github.com/jessedrg/cbd-boutique/internal/sitemap"
	"github.com/jessedrg/cbd-boutique/internal/slugparse"
	"github.com/jessedrg/cbd-boutique/internal/snapshot"
)

type deps struct {
	cfg    *config.Config
	cat    *catalog.Catalog
	engine *seoindex.Engine
	site   string
	logger *slog.Logger
}

func load(c *cli.Context) (*deps, error) {
	cfg := config.FromEnv()
	if v := c.String("catalog"); v != "" {
		cfg.CatalogFile = v
	}
	if v := c.String("site"); v != "" {
		cfg.SiteURL = strings.TrimRight(v, "/")
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if c.Bool("quiet") {
		level = slog.LevelError
	}
	return &deps{
		cfg:    cfg,
		cat:    cat,
		engine: seoindex.New(cfg.Policy(), cat.Categories),
		site:   cfg.SiteURL,
		logger: slog.New(slog.NewJSONHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})),
	}, nil
}

func emit(c *cli.Context, v any) error {
	w := c.App.Writer
	switch strings.ToLower(c.String("output")) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output %q (want json or yaml)", c.String("output"))
	}
}

// ---------------------------------------------------------------------------
// decide / parse / rules
// ---------------------------------------------------------------------------

func decideAction(c *cli.Context) error {
	d, err := load(c)
	if err != nil {
		return err
	}
	locale := d.cat.ResolveLocale(c.String("locale"))
	s := seoindex.Signals{Locale: locale, Category: c.String("category"), Intent: c.String("intent")}
	if slug := c.String("city"); slug != "" {
		found := false
		for _, city := range d.cat.LocaleCities(locale) {
			if city.Slug == slug {
				sig := sitemap.CitySignal(city)
				s.City = &sig
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("city %q is not served by locale %s", slug, locale)
		}
	}
	return emit(c, map[string]any{"signals": s, "decision": d.engine.Decide(s)})
}

func parseAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one slug is required")
	}
	d, err := load(c)
	if err != nil {
		return err
	}
	locale := d.cat.ResolveLocale(c.String("locale"))
	p := slugparse.New(d.cat)
	var out []map[string]any
	for _, arg := range c.Args().Slice() {
		res := p.ParsePath(arg, locale)
		out = append(out, map[string]any{
			"input":    arg,
			"signals":  res.Signals(locale),
			"decision": d.engine.Decide(res.Signals(locale)),
		})
	}
	return emit(c, out)
}

func rulesAction(c *cli.Context) error {
	d, err := load(c)
	if err != nil {
		return err
	}
	return emit(c, map[string]any{"rules": d.engine.Rules(), "policy": d.engine.Policy()})
}

// ---------------------------------------------------------------------------
// sitemap / audit
// ---------------------------------------------------------------------------

func sitemapAction(c *cli.Context) error {
	d, err := load(c)
	if err != nil {
		return err
	}
	e := sitemap.NewEnumerator(d.cat, d.engine, d.site)
	w := c.App.Writer
	switch {
	case c.Bool("robots"):
		_, err := io.WriteString(w, sitemap.Robots(d.site))
		return err
	case c.Bool("pages"):
		return sitemap.WriteURLSet(w, e.StaticPages())
	case c.String("locale") != "":
		locale := strings.ToLower(c.String("locale"))
		if !d.cat.HasLocale(locale) {
			return fmt.Errorf("unknown locale %q", locale)
		}
		return sitemap.WriteURLSet(w, e.IndexableURLs(locale))
	default:
		return sitemap.WriteIndex(w, e.IndexLocations(), time.Now())
	}
}

func auditAction(c *cli.Context) error {
	d, err := load(c)
	if err != nil {
		return err
	}
	filter, err := audit.ParseFilter(c.String("filter"))
	if err != nil {
		return err
	}
	format := strings.ToLower(c.String("format"))
	if format != "json" && format != "csv" && format != "txt" {
		return fmt.Errorf("unknown format %q (want json, csv or txt)", format)
	}

	b := audit.NewBuilder(d.cat, d.engine, d.site)
	all := b.Build(audit.Options{Triples: c.Bool("triples")})
	filtered := filter.Apply(all)
	d.logger.Info("audit built", "total", len(all), "selected", len(filtered), "filter", filter.Label())

	write := func(w io.Writer) error {
		switch format {
		case "csv":
			return audit.WriteCSV(w, filtered)
		case "txt":
			return audit.WriteTXT(w, filtered)
		}
		// The file output keeps every entry; the report cap is for HTTP responses.
		report := audit.NewReport(all, filtered, b.Policy(), d.site, time.Now())
		if c.String("out") != "" {
			report.Entries, report.Note = filtered, ""
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	path := c.String("out")
	if path == "" {
		return write(c.App.Writer)
	}
	return writeFile(path, write)
}

// writeFile creates path, runs write and reports the first of the write and
// close errors.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// check / publish
// ---------------------------------------------------------------------------

func checkAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one URL is required")
	}
	d, err := load(c)
	if err != nil {
		return err
	}
	classifier, err := pages.NewClassifier(d.cat, d.engine, d.site, 0)
	if err != nil {
		return err
	}
	var client *http.Client
	if t := c.Duration("timeout"); t > 0 {
		client = &http.Client{Timeout: t}
	}
	checker := inspect.NewChecker(classifier, client, c.Int("min-words"))

	var reports []inspect.Report
	failed := 0
	for _, u := range c.Args().Slice() {
		r, err := checker.Check(c.Context, u)
		if err != nil {
			d.logger.Error("check failed", "url", u, "error", err)
			failed++
			continue
		}
		if r.Worst() == inspect.SeverityError {
			failed++
		}
		d.logger.Info("checked", "url", u, "findings", len(r.Findings), "worst", string(r.Worst()))
		reports = append(reports, r)
	}
	if err := emit(c, reports); err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d pages failed", failed, c.NArg()), 2)
	}
	return nil
}

func publishAction(c *cli.Context) error {
	d, err := load(c)
	if err != nil {
		return err
	}
	var target publish.Publisher
	switch {
	case c.String("dir") != "" && c.Bool("s3"):
		return errors.New("use either --dir or --s3")
	case c.String("dir") != "":
		target = publish.Dir{Root: c.String("dir")}
	case c.Bool("s3"):
		s3, err := publish.NewS3(d.cfg.S3)
		if err != nil {
			return err
		}
		target = s3
	default:
		return errors.New("one of --dir or --s3 is required")
	}

	e := sitemap.NewEnumerator(d.cat, d.engine, d.site)
	files, err := publish.Render(e, d.cat.LocaleCodes(), time.Now())
	if err != nil {
		return err
	}
	if err := publish.All(c.Context, target, files); err != nil {
		return err
	}
	d.logger.Info("sitemaps published", "files", len(files))
	return nil
}

// ---------------------------------------------------------------------------
// runs
// ---------------------------------------------------------------------------

func openRuns(c *cli.Context) (*snapshot.Store, error) {
	store, err := snapshot.OpenSQLite(c.Context, c.String("db"), 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func runsCreateAction(c *cli.Context) error {
	d, err := load(c)
	if err != nil {
		return err
	}
	store, err := openRuns(c)
	if err != nil {
		return err
	}
	defer store.Close()

	b := audit.NewBuilder(d.cat, d.engine, d.site)
	all := b.Build(audit.Options{Triples: c.Bool("triples")})
	run := snapshot.NewRun(d.site, audit.Summarize(all, b.Policy()), c.Bool("triples"), c.String("note"))
	if err := store.Create(c.Context, run); err != nil {
		return err
	}
	d.logger.Info("audit run stored", "id", run.ID, "total", run.Total, "indexed", run.Indexed)
	return emit(c, run)
}

func runsListAction(c *cli.Context) error {
	store, err := openRuns(c)
	if err != nil {
		return err
	}
	defer store.Close()
	limit := c.Int("limit")
	if limit < 1 || limit > 200 {
		return fmt.Errorf("limit must be between 1 and 200")
	}
	resp, err := store.List(c.Context, c.String("cursor"), limit)
	if err != nil {
		return err
	}
	return emit(c, resp)
}

func runsGetAction(c *cli.Context) error {
	id, err := runID(c)
	if err != nil {
		return err
	}
	store, err := openRuns(c)
	if err != nil {
		return err
	}
	defer store.Close()
	run, err := store.Get(c.Context, id)
	if err != nil {
		return notFound(id, err)
	}
	return emit(c, run)
}

func runsDeleteAction(c *cli.Context) error {
	id, err := runID(c)
	if err != nil {
		return err
	}
	store, err := openRuns(c)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Delete(c.Context, id); err != nil {
		return notFound(id, err)
	}
	return emit(c, map[string]string{"deleted": id})
}

func runsExplainAction(c *cli.Context) error {
	store, err := openRuns(c)
	if err != nil {
		return err
	}
	defer store.Close()
	plan, err := store.Explain(c.Context)
	if err != nil {
		return err
	}
	return emit(c, plan)
}

func runID(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.New("run id is required")
	}
	return id, nil
}

func notFound(id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s not found", id)
	}
	return err
}
