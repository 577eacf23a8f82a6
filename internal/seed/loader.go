package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var embeddedDefaults []byte

// Loader reads a defaults file. An empty path selects the embedded set.
type Loader struct {
	filePath string
}

// NewLoader creates a loader for filePath.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the defaults file.
func (l *Loader) Load() (LinksConfig, error) {
	data := embeddedDefaults
	if l.filePath != "" {
		var err error
		data, err = os.ReadFile(l.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read defaults file: %w", err)
		}
	}

	var config LinksConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse defaults yaml: %w", err)
	}

	return config, nil
}
