package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/joshuapare/ermalloc/internal/logger"
	"github.com/joshuapare/ermalloc/internal/writer"
	"github.com/joshuapare/ermalloc/memory"
	"github.com/joshuapare/ermalloc/pkg/faults"
)

var (
	injectConfig   string
	injectSize     int
	injectPolicies []string
	injectFlips    int
	injectTrials   int
	injectSeed     uint64
	injectRegion   string
	injectLang     string
	injectOutput   string
)

// newRunID names a campaign run; replaced in tests.
var newRunID func() (uuid.UUID, error) = uuid.NewRandom

func init() {
	rootCmd.AddCommand(newInjectCmd())
}

func newInjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Run a bit-flip fault-injection campaign",
		Long: `The inject command allocates a protected block per trial, fills it with
pseudo-random data, flips bits and runs correction, then reports how many
trials were repaired, reported uncorrectable or silently miscorrected.

Settings come from a Jsonnet file (--config) with flags overriding it.
Environment variables are available in the file through std.extVar().

Example:
  ermctl inject --size 64 --policy redundancy:3 --flips 2 --trials 10000
  ermctl inject --config campaign.jsonnet --seed 42 --json -o report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInject(cmd.Context(), cmd)
		},
	}
	cmd.Flags().StringVarP(&injectConfig, "config", "c", "", "Jsonnet campaign file (- for stdin)")
	cmd.Flags().IntVar(&injectSize, "size", 64, "Payload size in bytes")
	cmd.Flags().StringArrayVarP(&injectPolicies, "policy", "p", nil, "Policy layer (nil, redundancy:N, rs:E); repeat to nest")
	cmd.Flags().IntVar(&injectFlips, "flips", 1, "Bit flips per trial")
	cmd.Flags().IntVar(&injectTrials, "trials", 1000, "Number of trials")
	cmd.Flags().Uint64Var(&injectSeed, "seed", 1, "Injector seed")
	cmd.Flags().StringVar(&injectRegion, "region", string(faults.RegionBuffer), "Where flips land: buffer or data")
	cmd.Flags().StringVar(&injectLang, "lang", "en", "BCP 47 tag for number formatting")
	cmd.Flags().StringVarP(&injectOutput, "output", "o", "", "Write the report to this file instead of stdout")
	return cmd
}

// buildCampaign merges the config file (if any) with explicitly set flags.
func buildCampaign(cmd *cobra.Command) (faults.Campaign, error) {
	cfg := campaignConfig{
		Size:     injectSize,
		Policies: injectPolicies,
		Flips:    injectFlips,
		Trials:   injectTrials,
		Seed:     injectSeed,
		Region:   injectRegion,
	}
	if injectConfig != "" {
		fileCfg, err := loadCampaignConfig(injectConfig)
		if err != nil {
			return faults.Campaign{}, err
		}
		flags := cmd.Flags()
		if !flags.Changed("size") && fileCfg.Size != 0 {
			cfg.Size = fileCfg.Size
		}
		if !flags.Changed("policy") && fileCfg.Policies != nil {
			cfg.Policies = fileCfg.Policies
		}
		if !flags.Changed("flips") {
			cfg.Flips = fileCfg.Flips
		}
		if !flags.Changed("trials") && fileCfg.Trials != 0 {
			cfg.Trials = fileCfg.Trials
		}
		if !flags.Changed("seed") && fileCfg.Seed != 0 {
			cfg.Seed = fileCfg.Seed
		}
		if !flags.Changed("region") && fileCfg.Region != "" {
			cfg.Region = fileCfg.Region
		}
	}

	stack, err := parseStack(cfg.Policies)
	if err != nil {
		return faults.Campaign{}, err
	}
	return faults.Campaign{
		Size:   cfg.Size,
		Stack:  stack,
		Flips:  cfg.Flips,
		Trials: cfg.Trials,
		Seed:   cfg.Seed,
		Region: faults.Region(cfg.Region),
	}, nil
}

func runInject(ctx context.Context, cmd *cobra.Command) error {
	tag, err := language.Parse(injectLang)
	if err != nil {
		return fmt.Errorf("invalid --lang: %w", err)
	}
	c, err := buildCampaign(cmd)
	if err != nil {
		return err
	}
	id, err := newRunID()
	if err != nil {
		return fmt.Errorf("failed to generate run ID: %w", err)
	}

	printVerbose("Running campaign %s: %d trials over %s\n", id, c.Trials, c.Stack)
	logger.Debug("campaign start", "id", id.String(), "size", c.Size, "policies", c.Stack.String(), "flips", c.Flips, "trials", c.Trials)

	res, err := faults.Run(ctx, memory.Default(), c)
	if err != nil {
		return fmt.Errorf("campaign failed: %w", err)
	}
	res.ID = id.String()

	var sink writer.Sink = writer.StreamWriter{W: os.Stdout}
	if injectOutput != "" {
		sink = &writer.FileWriter{Path: injectOutput}
	} else if quiet && !jsonOut {
		return nil
	}

	var report bytes.Buffer
	if jsonOut {
		enc := json.NewEncoder(&report)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	} else {
		err = res.WriteText(&report, tag)
	}
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := sink.WriteReport(report.Bytes()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if injectOutput != "" {
		printVerbose("Report written to %s\n", injectOutput)
	}
	return nil
}
