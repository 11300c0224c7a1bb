package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/go-jsonnet"
)

// campaignConfig is the schema of an inject --config file.
//
//	{
//	  size: 64,
//	  policies: ["redundancy:3", "rs:8"],
//	  flips: std.parseInt(std.extVar("FLIPS")),
//	  trials: 1000,
//	  seed: 7,
//	  region: "buffer",
//	}
type campaignConfig struct {
	Size     int      `json:"size"`
	Policies []string `json:"policies"`
	Flips    int      `json:"flips"`
	Trials   int      `json:"trials"`
	Seed     uint64   `json:"seed"`
	Region   string   `json:"region"`
}

// loadCampaignConfig reads a Jsonnet file ("-" for stdin), evaluates it with
// every environment variable available through std.extVar() and decodes the
// result.
func loadCampaignConfig(path string) (campaignConfig, error) {
	var cfg campaignConfig

	var input []byte
	var err error
	if path == "-" {
		input, err = io.ReadAll(os.Stdin)
	} else {
		input, err = os.ReadFile(path)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	vm := jsonnet.MakeVM()
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			return cfg, fmt.Errorf("invalid environment variable: %#v", env)
		}
		vm.ExtVar(parts[0], parts[1])
	}

	output, err := vm.EvaluateSnippet(path, string(input))
	if err != nil {
		return cfg, fmt.Errorf("failed to evaluate config: %w", err)
	}

	dec := json.NewDecoder(strings.NewReader(output))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
