package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/jessedrg/cbd-boutique/internal/audit"
	"github.com/jessedrg/cbd-boutique/internal/catalog"
	"github.com/jessedrg/cbd-boutique/internal/config"
	"github.com/jessedrg/cbd-boutique/internal/pages"
	"github.com/jessedrg/cbd-boutique/internal/seoindex"
	"github.com/jessedrg/cbd-boutique/internal/sitemap"
	"github.com/jessedrg/cbd-boutique/internal/snapshot"
)

const serviceName = "seo-service"

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

type createRunRequest struct {
	Note    string `json:"note"`
	Triples bool   `json:"triples"`
}

type service struct {
	cat        *catalog.Catalog
	siteURL    string
	urls       *sitemap.Enumerator
	audits     *audit.Builder
	classifier *pages.Classifier
	store      *snapshot.Store
	now        func() time.Time
}

func newService(cfg *config.Config, cat *catalog.Catalog, store *snapshot.Store) (*service, error) {
	engine := seoindex.New(cfg.Policy(), cat.Categories)
	classifier, err := pages.NewClassifier(cat, engine, cfg.SiteURL, cfg.PageCacheSize)
	if err != nil {
		return nil, err
	}
	return &service{
		cat:        cat,
		siteURL:    cfg.SiteURL,
		urls:       sitemap.NewEnumerator(cat, engine, cfg.SiteURL),
		audits:     audit.NewBuilder(cat, engine, cfg.SiteURL),
		classifier: classifier,
		store:      store,
		now:        time.Now,
	}, nil
}

// ---------------------------------------------------------------------------
// main
// ---------------------------------------------------------------------------

func main() {
	cfg := config.Load()
	cat, err := cfg.Catalog()
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	store := snapshot.NewMemory(cfg.CacheTTL)
	if db, err := connectDB(cfg.DB); err != nil {
		log.Printf("warn: database unavailable, running audit runs in memory mode: %v", err)
	} else if s, err := snapshot.New(context.Background(), db, "pgx", cfg.CacheTTL); err != nil {
		log.Printf("warn: schema setup failed, using memory mode: %v", err)
		_ = db.Close()
	} else {
		store = s
	}
	defer func() { _ = store.Close() }()

	svc, err := newService(cfg, cat, store)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(svc.routes(), &http2.Server{}),
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		log.Printf("%s listening on :%s (site %s, storage %s)", serviceName, cfg.Port, cfg.SiteURL, store.Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("warn: shutdown: %v", err)
	}
}

func (s *service) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": serviceName, "mode": s.store.Mode(), "site": s.siteURL})
	})

	// Sitemaps and robots.
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = io.WriteString(w, sitemap.Robots(s.siteURL))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		writeXML(w, func(b *bytes.Buffer) error {
			return sitemap.WriteIndex(b, s.urls.IndexLocations(), s.now())
		})
	})
	mux.HandleFunc("/sitemaps/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/sitemaps/")
		locale, ok := strings.CutSuffix(name, ".xml")
		switch {
		case name == "pages.xml":
			writeXML(w, func(b *bytes.Buffer) error {
				return sitemap.WriteURLSet(b, s.urls.StaticPages())
			})
		case ok && s.cat.HasLocale(locale):
			writeXML(w, func(b *bytes.Buffer) error {
				return sitemap.WriteURLSet(b, s.urls.IndexableURLs(locale))
			})
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc(sitemap.GonePrefix, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusGone)
		_, _ = io.WriteString(w, sitemap.GoneMessage)
	})

	mux.HandleFunc("/api/seo-audit", s.handleAudit)

	mux.HandleFunc("/v1/classify", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		q := r.URL.Query()
		h, err := s.classifier.Classify(q.Get("locale"), q.Get("path"))
		if err != nil {
			if errors.Is(err, pages.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"item": h})
	})

	// Audit runs.
	base := "/v1/audit-runs"

	mux.HandleFunc(base+"/_explain", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		plan, err := s.store.Explain(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"plan": plan, "mode": s.store.Mode()})
	})

	mux.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			limit := intParam(r, "limit", 50, 1, 200)
			cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
			resp, err := s.store.List(r.Context(), cursor, limit)
			if err != nil {
				if errors.Is(err, snapshot.ErrInvalidCursor) {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
					return
				}
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			var req createRunRequest
			if err := decodeJSON(r, &req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			entries := s.audits.Build(audit.Options{Triples: req.Triples})
			run := snapshot.NewRun(s.siteURL, audit.Summarize(entries, s.audits.Policy()), req.Triples, req.Note)
			if err := s.store.Create(r.Context(), run); err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"item": run})
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		}
	})

	mux.HandleFunc(base+"/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, base+"/"))
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
			return
		}

		switch r.Method {
		case http.MethodGet:
			run, err := s.store.Get(r.Context(), id)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "audit run not found"})
					return
				}
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"item": run})
		case http.MethodDelete:
			if err := s.store.Delete(r.Context(), id); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "audit run not found"})
					return
				}
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": id})
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		}
	})

	mux.HandleFunc("/", s.handlePage)

	return withServerDefaults(mux)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *service) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	q := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" && format != "txt" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be json, csv or txt"})
		return
	}
	filter, err := audit.ParseFilter(q.Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	triples, _ := strconv.ParseBool(q.Get("triples"))

	now := s.now()
	all := s.audits.Build(audit.Options{Triples: triples})
	filtered := filter.Apply(all)
	w.Header().Set("Cache-Control", "no-cache")

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+audit.Filename(format, filter, now)+`"`)
		if err := audit.WriteCSV(w, filtered); err != nil {
			log.Printf("warn: write audit csv: %v", err)
		}
	case "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+audit.Filename(format, filter, now)+`"`)
		if err := audit.WriteTXT(w, filtered); err != nil {
			log.Printf("warn: write audit txt: %v", err)
		}
	default:
		writeJSON(w, http.StatusOK, audit.NewReport(all, filtered, s.audits.Policy(), s.siteURL, now))
	}
}

// handlePage serves /{locale}/{slug...} page heads.
func (s *service) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	h, err := s.classifier.ClassifyPath(r.URL.Path)
	if err != nil {
		if errors.Is(err, pages.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := pages.Render(&buf, h); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Robots-Tag", h.Robots)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ---------------------------------------------------------------------------
// Database
// ---------------------------------------------------------------------------

func connectDB(cfg config.DBConfig) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdle)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

func withServerDefaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func writeXML(w http.ResponseWriter, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// decodeJSON accepts an empty body as the zero value.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.New("invalid JSON payload")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func intParam(r *http.Request, key string, def, min, max int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
