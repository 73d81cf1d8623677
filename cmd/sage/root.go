package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pellucidlabs/sage/agent"
	"github.com/pellucidlabs/sage/capability"
	"github.com/pellucidlabs/sage/config"
	"github.com/pellucidlabs/sage/memory"
	"github.com/pellucidlabs/sage/memory/embedder/hash"
	chromemindex "github.com/pellucidlabs/sage/memory/index/chromem"
	"github.com/pellucidlabs/sage/model"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sage",
		Short:        "Conversational agent with layered memory",
		SilenceUsage: true,
	}

	root.AddCommand(newChatCmd())
	root.AddCommand(newMemoriesCmd())
	root.AddCommand(newPrefCmd())
	return root
}

// buildCoordinator wires the memory stack from configuration: the bounded
// session buffer, the SQLite-backed long-term store, and the in-process
// similarity index.
func buildCoordinator(cfg *config.Config, logger *log.Logger) (*memory.Coordinator, error) {
	idx, err := chromemindex.NewPersistent(filepath.Join(cfg.DataDir, "index"))
	if err != nil {
		return nil, fmt.Errorf("create similarity index: %w", err)
	}

	ltm, err := memory.NewLongTerm(filepath.Join(cfg.DataDir, "memory.db"),
		memory.WithIndex(idx),
		memory.WithEmbedder(hash.New()),
		memory.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open long-term store: %w", err)
	}

	coord := memory.NewCoordinator(
		memory.NewShortTerm(cfg.STMCapacity),
		ltm,
		memory.ConsolidationConfig{
			Threshold:            cfg.Consolidation.Threshold,
			RelevanceFloor:       cfg.RelevanceFloor,
			BaseScore:            cfg.Consolidation.BaseScore,
			LongChunkBonus:       cfg.Consolidation.LongChunkBonus,
			QuestionBonus:        cfg.Consolidation.QuestionBonus,
			PersonalBonus:        cfg.Consolidation.PersonalBonus,
			DetailBonus:          cfg.Consolidation.DetailBonus,
			PersistenceThreshold: cfg.Consolidation.PersistenceThreshold,
		},
		memory.WithCoordinatorLogger(logger),
	)
	return coord, nil
}

// buildAgent assembles the full agent from configuration.
func buildAgent(cfg *config.Config, logger *log.Logger) (*agent.Agent, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	m, err := model.NewAnthropicModel(cfg.APIKey, cfg.ModelName)
	if err != nil {
		return nil, err
	}

	coord, err := buildCoordinator(cfg, logger)
	if err != nil {
		return nil, err
	}

	reg := capability.NewRegistry()
	if err := reg.Register(currentTimeCapability()); err != nil {
		return nil, err
	}

	return agent.New(m, coord, reg, agent.Options{
		Persona:          cfg.Persona,
		MaxIterations:    cfg.MaxIterations,
		MinRespondLength: cfg.MinRespondLength,
		Logger:           logger,
	})
}

// currentTimeCapability reports the current local time. Kept built in so a
// fresh install has at least one capability to exercise.
func currentTimeCapability() capability.Capability {
	return &capability.Func{
		CapName:        "current_time",
		CapDescription: "Returns the current date and time",
		Schema:         capability.ObjectSchema(nil),
		Fn: func(ctx context.Context, params map[string]any) (*capability.Result, error) {
			return &capability.Result{
				Success: true,
				Result:  time.Now().Format("Monday, 2006-01-02 15:04:05 MST"),
			}, nil
		},
	}
}
