package diag

import "gopkg.in/yaml.v3"

// PipelineConfig controls which optional passes a driver built on top
// of this module runs. The driver binary lives elsewhere; this is the
// configuration surface it loads.
type PipelineConfig struct {
	RunSanityCheck bool   `yaml:"run_sanity_check"`
	DumpHIR        bool   `yaml:"dump_hir"`
	DumpLIR        bool   `yaml:"dump_lir"`
	DumpCPS        bool   `yaml:"dump_cps"`
	LogLevel       string `yaml:"log_level"`
}

// DefaultPipelineConfig returns the configuration a fresh driver should
// start from: sanity checking on, no dumps, informational logging.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		RunSanityCheck: true,
		LogLevel:       "info",
	}
}

// ParsePipelineConfig decodes a YAML document into a PipelineConfig,
// seeded with DefaultPipelineConfig's values for any field the document
// omits.
func ParsePipelineConfig(data []byte) (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PipelineConfig{}, err
	}
	return cfg, nil
}
