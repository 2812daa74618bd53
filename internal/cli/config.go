package cli

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"

	"github.com/ripplelang/ripple/lang/vm"
)

// RuntimeConfig is populated from the process environment (spec §1's "host
// decides everything" principle, extended to the CLI host specifically):
// heap-sizing knobs and interpreter toggles a shell script or container can
// override without recompiling, layered underneath (never instead of) the
// vm.Config a programmatic embedder builds directly.
type RuntimeConfig struct {
	InitialHeapSizeBytes int  `env:"RIPPLE_INITIAL_HEAP_BYTES" envDefault:"0"`
	MinHeapSizeBytes     int  `env:"RIPPLE_MIN_HEAP_BYTES" envDefault:"0"`
	HeapGrowthPercent    int  `env:"RIPPLE_HEAP_GROWTH_PERCENT" envDefault:"0"`
	AcceptTrailingSemi   bool `env:"RIPPLE_ACCEPT_TRAILING_SEMICOLONS" envDefault:"true"`
	StressGC             bool `env:"RIPPLE_STRESS_GC" envDefault:"false"`
}

// LoadRuntimeConfig reads RuntimeConfig from the environment, falling back
// to its envDefault tags for anything unset.
func LoadRuntimeConfig() (RuntimeConfig, error) {
	var cfg RuntimeConfig
	if err := env.Parse(&cfg); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

// toVMConfig builds the vm.Config this RuntimeConfig describes, wiring
// System.writeString_ output to stdio.Stdout.
func (cfg RuntimeConfig) toVMConfig(stdio mainer.Stdio) vm.Config {
	return vm.Config{
		InitialHeapSize:           cfg.InitialHeapSizeBytes,
		MinHeapSize:               cfg.MinHeapSizeBytes,
		HeapGrowthPercent:         cfg.HeapGrowthPercent,
		AcceptsTrailingSemicolons: cfg.AcceptTrailingSemi,
		StressGC:                  cfg.StressGC,
		Write: func(_ *vm.VM, text string) {
			fmt.Fprint(stdio.Stdout, text)
		},
	}
}
