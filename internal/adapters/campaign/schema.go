package campaign

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int      `toml:"version"`
	Name    string   `toml:"name"`
	Message string   `toml:"message"`
	Targets []string `toml:"targets"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported campaign schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}
