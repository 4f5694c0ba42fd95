// ambitful-crawler is the background crawl and draft-ingestion service.
//
// Fetches external listing pages through the scrape proxy, extracts
// structured opportunity data with an LLM backend, and funnels deduplicated
// drafts into the moderation queue.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Masud-Ndatsu/ambitful-api/internal/cache"
	"github.com/Masud-Ndatsu/ambitful-api/internal/config"
	"github.com/Masud-Ndatsu/ambitful-api/internal/db"
	"github.com/Masud-Ndatsu/ambitful-api/internal/draft"
	"github.com/Masud-Ndatsu/ambitful-api/internal/extract"
	"github.com/Masud-Ndatsu/ambitful-api/internal/fetch"
	"github.com/Masud-Ndatsu/ambitful-api/internal/llm"
	"github.com/Masud-Ndatsu/ambitful-api/internal/model"
	"github.com/Masud-Ndatsu/ambitful-api/internal/pipeline"
	"github.com/Masud-Ndatsu/ambitful-api/internal/queue"
	"github.com/Masud-Ndatsu/ambitful-api/internal/scheduler"
	"github.com/Masud-Ndatsu/ambitful-api/internal/scrape"
	"github.com/Masud-Ndatsu/ambitful-api/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("[crawler] Fatal: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// persistence + cache
	sources := store.NewSourceStore(pool)
	drafts := store.NewDraftStore(pool)
	kv := cache.New(rdb)

	if err := seedSources(ctx, sources, cfg.SeedSourcesPath); err != nil {
		return err
	}

	// Recover sources a previous run left mid-crawl before workers start.
	if reset, err := sources.ResetStaleActive(ctx, time.Now()); err != nil {
		return err
	} else if reset > 0 {
		log.Printf("[crawler] %d interrupted crawl(s) reset to ERROR", reset)
	}

	// fetch → normalize → extract machinery
	router, err := buildRouter(cfg)
	if err != nil {
		return err
	}
	deps := scrape.Deps{
		Fetcher:    fetch.NewFetcher(cfg.ProxyBaseURL, cfg.ProxyAPIKey, kv),
		Normalizer: fetch.NewNormalizer(),
		Engine:     extract.NewEngine(router),
	}
	factory := scrape.NewFactory(deps)

	materializer := draft.NewMaterializer(drafts, drafts)

	// queues + pipeline
	listingQ := queue.New(rdb, "listing")
	detailQ := queue.New(rdb, "details")
	pipe := pipeline.New(sources, factory, materializer, kv, listingQ, detailQ, pipeline.Config{
		ListingConcurrency: cfg.ListingConcurrency,
		DetailConcurrency:  cfg.DetailConcurrency,
	})
	pipe.Start(ctx)

	sched := scheduler.New(sources, pipe, cfg.ScheduleSpec)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newMux(pipe),
	}
	go func() {
		log.Printf("[crawler] Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[crawler] HTTP server error: %v", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	log.Println("[crawler] Shutting down…")
	sched.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[crawler] HTTP shutdown error: %v", err)
	}
	pipe.Wait()

	log.Println("[crawler] Stopped")
	return nil
}

// buildRouter assembles the LLM provider chain: every Anthropic key, then
// every Cohere key, rotated on failure.
func buildRouter(cfg *config.Config) (*llm.Router, error) {
	var providers []llm.Provider
	providers = append(providers, llm.NewAnthropicProviders(cfg.AnthropicAPIKeys, cfg.AnthropicModel)...)
	providers = append(providers, llm.NewCohereProviders(cfg.CohereAPIKeys, cfg.CohereModel)...)
	return llm.NewRouter(providers...)
}

// seedSources provisions bootstrap crawl sources from the optional YAML file.
func seedSources(ctx context.Context, sources *store.SourceStore, path string) error {
	seeds, err := config.LoadSeedSources(path)
	if err != nil {
		return err
	}
	for _, s := range seeds {
		freq := model.CrawlFrequency(strings.ToUpper(s.Frequency))
		if freq == "" {
			freq = model.FrequencyDaily
		}
		if err := sources.UpsertSeed(ctx, s.Name, s.URL, freq, s.ScraperType, s.IsDetailsCrawled); err != nil {
			return err
		}
	}
	if len(seeds) > 0 {
		log.Printf("[crawler] %d seed source(s) provisioned", len(seeds))
	}
	return nil
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// newMux exposes the operator-facing surface: health, queue stats, and
// manual crawl triggers. The user-facing REST API lives elsewhere.
func newMux(pipe *pipeline.Pipeline) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Service: "ambitful-crawler",
			Version: "0.1.0",
		})
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := pipe.QueueStats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	mux.HandleFunc("POST /crawl/bulk", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SourceIDs []string `json:"sourceIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.SourceIDs) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sourceIds is required"})
			return
		}
		queued, errs := pipe.TriggerBulkCrawl(r.Context(), body.SourceIDs)
		resp := map[string]any{"queued": queued}
		if len(errs) > 0 {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			resp["errors"] = msgs
		}
		writeJSON(w, http.StatusAccepted, resp)
	})

	mux.HandleFunc("POST /crawl/{sourceID}", func(w http.ResponseWriter, r *http.Request) {
		jobID, err := pipe.TriggerListingCrawl(r.Context(), r.PathValue("sourceID"), queue.PriorityManual, 0)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
