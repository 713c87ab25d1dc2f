// ============================================================================
// Nexus Drafts CLI
// ============================================================================
//
// Package: internal/cli
// Purpose: Cobra-based command line interface over the draft core.
//
// Command structure:
//   nexus-drafts                  # Root command
//   ├── save                      # Force-save a draft from a JSON file
//   │   └── --file, -f
//   ├── load                      # Load a draft by id (remote, then fallback)
//   ├── publish                   # Publish a draft with auxiliary collections
//   │   ├── --file, -f
//   │   └── --collections, -a
//   ├── status                    # Show a draft's lifecycle status
//   ├── --version
//   └── --config, -c              # YAML config (default: configs/default.yaml)
//
// Configuration (YAML):
//   remote:   base_url, token, timeout, max_retries
//   autosave: debounce_ms
//   cache:    dir
//   metrics:  enabled, port
//
// ============================================================================

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oklahomahail/nexus2-sub008/internal/cache"
	"github.com/oklahomahail/nexus2-sub008/internal/persist"
	"github.com/oklahomahail/nexus2-sub008/internal/store"
	"github.com/oklahomahail/nexus2-sub008/pkg/types"
)

// Config represents the complete configuration structure, mapped through
// YAML tags.
type Config struct {
	Remote struct {
		BaseURL    string        `yaml:"base_url"`
		Token      string        `yaml:"token"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries uint64        `yaml:"max_retries"`
	} `yaml:"remote"`

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

// DebounceWindow returns the configured autosave window, falling back to the
// persistence default.
func (c *Config) DebounceWindow() time.Duration {
	if c.Autosave.DebounceMs <= 0 {
		return persist.DefaultDebounce
	}
	return time.Duration(c.Autosave.DebounceMs) * time.Millisecond
}

var configFile string

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nexus-drafts",
		Short: "Nexus drafts: campaign draft autosave and publishing",
		Long: `Nexus drafts manages fundraising campaign drafts:
- Debounced autosave to a remote store
- Local fallback copies for offline recovery
- Non-transactional publish with auxiliary content collections`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildSaveCommand())
	rootCmd.AddCommand(buildLoadCommand())
	rootCmd.AddCommand(buildPublishCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildSaveCommand() *cobra.Command {
	var draftFile string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a draft immediately, bypassing the debounce window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveDraft(draftFile)
		},
	}

	cmd.Flags().StringVarP(&draftFile, "file", "f", "", "draft JSON file")
	cmd.MarkFlagRequired("file")

	return cmd
}

func buildLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <draft-id>",
		Short: "Load a draft, falling back to the local copy if the remote is down",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return loadDraft(args[0])
		},
	}
	return cmd
}

func buildPublishCommand() *cobra.Command {
	var draftFile string
	var collectionsFile string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a draft and write its auxiliary collections",
		Long: `Publish marks the draft as published, then inserts each auxiliary
collection (generated asks, social posts) in order. A failing step aborts
the rest; steps already written are not rolled back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishDraft(draftFile, collectionsFile)
		},
	}

	cmd.Flags().StringVarP(&draftFile, "file", "f", "", "draft JSON file")
	cmd.Flags().StringVarP(&collectionsFile, "collections", "a", "", "auxiliary collections JSON file (optional)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <draft-id>",
		Short: "Show a draft's lifecycle status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(args[0])
		},
	}
	return cmd
}

func saveDraft(path string) error {
	draft, err := readDraftFile(path)
	if err != nil {
		return err
	}

	saver, err := newSaver()
	if err != nil {
		return err
	}
	defer saver.Close()

	saver.OnStatus(func(st types.SaveStatus) {
		fmt.Println(st.Indicator())
	})

	if !saver.ForceSave(context.Background(), draft) {
		return fmt.Errorf("save failed: %s", saver.Status().Err)
	}
	fmt.Printf("Draft %s saved\n", draft.ID)
	return nil
}

func loadDraft(id string) error {
	saver, err := newSaver()
	if err != nil {
		return err
	}
	defer saver.Close()

	draft, err := saver.Load(context.Background(), id)
	if err != nil {
		return fmt.Errorf("load draft %s: %w", id, err)
	}

	out, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func publishDraft(draftPath, collectionsPath string) error {
	draft, err := readDraftFile(draftPath)
	if err != nil {
		return err
	}

	var cols []store.Collection
	if collectionsPath != "" {
		data, err := os.ReadFile(collectionsPath)
		if err != nil {
			return fmt.Errorf("failed to read collections file: %w", err)
		}
		if err := json.Unmarshal(data, &cols); err != nil {
			return fmt.Errorf("failed to parse collections file: %w", err)
		}
	}

	saver, err := newSaver()
	if err != nil {
		return err
	}
	defer saver.Close()

	if err := saver.Publish(context.Background(), draft, cols); err != nil {
		return fmt.Errorf("publish draft %s: %w", draft.ID, err)
	}
	fmt.Printf("Draft %s published\n", draft.ID)
	return nil
}

func showStatus(id string) error {
	saver, err := newSaver()
	if err != nil {
		return err
	}
	defer saver.Close()

	draft, err := saver.Load(context.Background(), id)
	if err != nil {
		return fmt.Errorf("load draft %s: %w", id, err)
	}

	fmt.Printf("Draft:      %s\n", draft.ID)
	fmt.Printf("Client:     %s\n", draft.ClientID)
	fmt.Printf("Title:      %s\n", draft.Title)
	fmt.Printf("Status:     %s\n", draft.Status)
	if draft.PublishedAt != nil {
		fmt.Printf("Published:  %s\n", draft.PublishedAt.Format(time.RFC3339))
	}
	fmt.Printf("Updated:    %s\n", draft.UpdatedAt.Format(time.RFC3339))
	return nil
}

// newSaver assembles a saver over the configured HTTP remote store and the
// file-backed fallback cache.
func newSaver() (*persist.Saver[types.CampaignDraft], error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	remote, err := store.NewClient[types.CampaignDraft](store.ClientConfig{
		BaseURL:    cfg.Remote.BaseURL,
		Token:      cfg.Remote.Token,
		Timeout:    cfg.Remote.Timeout,
		MaxRetries: cfg.Remote.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	dir := cfg.Cache.Dir
	if dir == "" {
		dir = "data/draft-cache"
	}
	local, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}

	return persist.NewSaver[types.CampaignDraft](remote, local,
		persist.WithDebounce[types.CampaignDraft](cfg.DebounceWindow()),
	), nil
}

// readDraftFile parses a draft JSON file, generating an id when missing and
// stamping UpdatedAt.
func readDraftFile(path string) (types.CampaignDraft, error) {
	var draft types.CampaignDraft

	data, err := os.ReadFile(path)
	if err != nil {
		return draft, fmt.Errorf("failed to read draft file: %w", err)
	}
	if err := json.Unmarshal(data, &draft); err != nil {
		return draft, fmt.Errorf("failed to parse draft file: %w", err)
	}

	if draft.ID == "" {
		draft.ID = types.NewDraftID()
	}
	if draft.Status == "" {
		draft.Status = types.StatusDraft
	}
	draft.UpdatedAt = time.Now()
	return draft, nil
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	return &cfg, nil
}
