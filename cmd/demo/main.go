// Demo walks the draft core end to end against the in-memory store:
//
//	go run cmd/demo/main.go edit      # autosave, coalescing, publish
//	go run cmd/demo/main.go recover   # remote outage, fallback recovery
//	go run cmd/demo/main.go generate  # cancellable content-generation task
//
// When metrics are enabled in the config, /metrics is served for the
// duration of the run.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/oklahomahail/nexus2-sub008/internal/cache"
	"github.com/oklahomahail/nexus2-sub008/internal/metrics"
	"github.com/oklahomahail/nexus2-sub008/internal/persist"
	"github.com/oklahomahail/nexus2-sub008/internal/store"
	"github.com/oklahomahail/nexus2-sub008/internal/task"
	"github.com/oklahomahail/nexus2-sub008/pkg/types"
)

type Config struct {
	Autosave struct {
		DebounceMs int `yaml:"debounce_ms"`
	} `yaml:"autosave"`
	Cache struct {
		Dir string `yaml:"dir"`
	} `yaml:"cache"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/demo/main.go <edit|recover|generate>")
		os.Exit(1)
	}
	mode := os.Args[1]

	cfg, err := loadConfig("configs/default.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	collector := metrics.NewCollector(nil)
	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			log.Printf("Metrics on http://localhost%s/metrics", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	local, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	remote := store.NewMemory[types.CampaignDraft]()

	window := persist.DefaultDebounce
	if cfg.Autosave.DebounceMs > 0 {
		window = time.Duration(cfg.Autosave.DebounceMs) * time.Millisecond
	}
	saver := persist.NewSaver[types.CampaignDraft](remote, local,
		persist.WithDebounce[types.CampaignDraft](window),
		persist.WithCollector[types.CampaignDraft](collector),
	)
	defer saver.Close()

	saver.OnStatus(func(st types.SaveStatus) {
		fmt.Printf("  [status] %s\n", st.Indicator())
	})

	switch mode {
	case "edit":
		runEdit(saver, remote, window)
	case "recover":
		runRecover(saver, remote)
	case "generate":
		runGenerate(collector)
	default:
		fmt.Printf("Unknown mode %q\n", mode)
		os.Exit(1)
	}
}

// runEdit simulates rapid edits coalescing into one remote write, then a
// publish with generated auxiliary content.
func runEdit(saver *persist.Saver[types.CampaignDraft], remote *store.Memory[types.CampaignDraft], window time.Duration) {
	draft := types.CampaignDraft{
		ID:        types.NewDraftID(),
		ClientID:  "client-demo",
		Status:    types.StatusDraft,
		GoalCents: 5_000_000,
	}

	fmt.Println("Typing three revisions inside the debounce window...")
	for _, title := range []string{"Spring G", "Spring Ga", "Spring Gala 2026"} {
		draft.Title = title
		draft.UpdatedAt = time.Now()
		saver.Autosave(draft)
		time.Sleep(window / 4)
	}

	time.Sleep(window * 2)
	fmt.Printf("Remote writes: %d (coalesced)\n", remote.UpsertCount())

	asks := store.Collection{
		Name: "generated_asks",
		Items: []map[string]any{
			{"campaign_id": draft.ID, "amount_cents": 2500, "label": "Friend"},
			{"campaign_id": draft.ID, "amount_cents": 10000, "label": "Patron"},
		},
	}
	if err := saver.Publish(context.Background(), draft, []store.Collection{asks}); err != nil {
		log.Fatalf("Publish failed: %v", err)
	}
	fmt.Printf("Published %s with %d ask levels\n", draft.ID, len(asks.Items))
}

// runRecover takes the remote store down mid-session and shows the local
// fallback serving the latest edit.
func runRecover(saver *persist.Saver[types.CampaignDraft], remote *store.Memory[types.CampaignDraft]) {
	draft := types.CampaignDraft{
		ID:       types.NewDraftID(),
		ClientID: "client-demo",
		Title:    "Offline edits survive",
		Status:   types.StatusDraft,
	}

	fmt.Println("Remote store going down...")
	remote.FailUpserts(errors.New("network down"))
	remote.FailGets(errors.New("network down"))

	saver.ForceSave(context.Background(), draft)

	got, err := saver.Load(context.Background(), draft.ID)
	if err != nil {
		log.Fatalf("Recovery failed: %v", err)
	}
	fmt.Printf("Recovered from local fallback: %q\n", got.Title)
}

// runGenerate runs a cancellable content-generation task with progress.
func runGenerate(collector *metrics.Collector) {
	runner := task.NewRunner[string](
		task.WithInitialStatus[string]("Idle"),
		task.WithOnChange[string](func(st task.State[string]) {
			if st.Progress != nil {
				fmt.Printf("  [%3d%%] %s\n", *st.Progress, st.Status)
			} else {
				fmt.Printf("  [  - ] %s\n", st.Status)
			}
		}),
		task.WithCollector[string](collector),
	)
	defer runner.Close()

	narrative, err := runner.Run(context.Background(), func(ctx context.Context, c *task.Controls) (string, error) {
		phases := []string{"Outlining story", "Drafting narrative", "Polishing tone"}
		for i, phase := range phases {
			select {
			case <-ctx.Done():
				return "", task.ErrCancelled
			case <-time.After(300 * time.Millisecond):
			}
			c.UpdateProgress((i+1)*100/len(phases), phase)
		}
		return "Every spring, our community comes together...", nil
	})
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}
	fmt.Printf("Generated narrative: %q\n", narrative)
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "data/draft-cache"
	}
	return &cfg, nil
}
