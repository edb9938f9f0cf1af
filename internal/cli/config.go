package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// bridgeConfig is the on-disk shape for --config, one field per bridge.
// Adapted from the teacher's cmd/config.go Config struct: same
// load-a-YAML-file-into-a-typed-struct approach, narrowed from ~30 analyzer
// toggle fields down to the six bridge spawn overrides this project has.
type bridgeConfig struct {
	PythonBridge string `yaml:"python_bridge"`
	NodeBridge   string `yaml:"node_bridge"`
	RustBridge   string `yaml:"rust_bridge"`
	GoProbeBin   string `yaml:"go_probe_binary"`
	JavaBin      string `yaml:"java_bin"`
	JavaJar      string `yaml:"java_bridge_jar"`
}

var configPath string

// loadConfigFile reads --config (if set) and applies any field it sets as
// the default for the matching flag variable, so an explicit flag always
// wins over the file. Returns nil without error when configPath is empty.
func loadConfigFile() error {
	if configPath == "" {
		return nil
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	var cfg bridgeConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", configPath, err)
	}

	if pythonBridge == "" {
		pythonBridge = cfg.PythonBridge
	}
	if nodeBridge == "" {
		nodeBridge = cfg.NodeBridge
	}
	if rustBridge == "" {
		rustBridge = cfg.RustBridge
	}
	if goProbeBin == "" {
		goProbeBin = cfg.GoProbeBin
	}
	if javaBin == "" {
		javaBin = cfg.JavaBin
	}
	if javaJar == "" {
		javaJar = cfg.JavaJar
	}
	return nil
}
