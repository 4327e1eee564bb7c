package project

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save serializes the project and writes it to path. The file is written
// to a temporary sibling and renamed into place, so an interrupted save
// never leaves a truncated project behind. Save and Apply on the same
// Project are mutually exclusive.
func (p *Project) Save(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := p.marshal()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	_ = os.Chmod(tmpPath, 0644)

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Marshal returns the versioned YAML serialization of the project.
func (p *Project) Marshal() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marshal()
}

func (p *Project) marshal() ([]byte, error) {
	if p.Version == 0 {
		p.Version = Version
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling project: %w", err)
	}
	return data, nil
}

// Unmarshal parses a serialized project. An unreadable project file is
// non-recoverable for that project instance.
func Unmarshal(data []byte) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing project: %w", err)
	}
	if p.Version == 0 {
		return nil, fmt.Errorf("parsing project: missing format version")
	}
	if p.Version > Version {
		return nil, fmt.Errorf("project format version %d is newer than supported version %d", p.Version, Version)
	}
	for _, e := range p.Entries {
		if e.Status == "" {
			e.Status = StatusPending
		}
		// In-flight is a run-time state; a loaded project starts over.
		if e.Status == StatusInFlight {
			e.Status = StatusPending
		}
	}
	return &p, nil
}

// Load reads a project file from disk. The project is fully self-contained:
// loading needs none of the original binaries.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
