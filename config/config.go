// Package config loads clokit.yaml, the per-project configuration file.
//
// When a clokit.yaml exists in the project root it supplies defaults for
// every command; command-line flags always override file values. A missing
// file is not an error — everything has a usable default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "clokit.yaml"

// DefaultProjectFile is where extract writes and the other commands read
// the project state unless overridden.
const DefaultProjectFile = "clokit-project.yaml"

// File is the top-level clokit.yaml structure.
type File struct {
	// Engine is the default translation engine name.
	Engine string `yaml:"engine,omitempty"`
	// SourceLang is the source language code (default "auto").
	SourceLang string `yaml:"source_lang,omitempty"`
	// TargetLang is the translation target language code.
	TargetLang string `yaml:"target_lang,omitempty"`
	// TargetCharset is the device runtime charset used for validation
	// (IANA name, e.g. "GBK", "EUC-KR"). Empty disables validation.
	TargetCharset string `yaml:"target_charset,omitempty"`

	// Include are glob patterns (doublestar syntax) selecting the class
	// files and jars to extract, relative to the project root.
	Include []string `yaml:"include,omitempty"`
	// ProjectFile is where the extracted project state lives.
	ProjectFile string `yaml:"project_file,omitempty"`

	// Concurrency bounds in-flight translation calls.
	Concurrency int `yaml:"concurrency,omitempty"`
	// MaxRetries bounds per-entry retry attempts.
	MaxRetries int `yaml:"max_retries,omitempty"`
	// RequestsPerSecond rate-limits engine calls (0 = unlimited).
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`

	// Model overrides the engine's default model, where applicable.
	Model string `yaml:"model,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL for engines that honor it.
	Proxy string `yaml:"proxy,omitempty"`
}

// Default returns the configuration used when no clokit.yaml exists.
func Default() *File {
	return &File{
		Engine:      "google-light",
		SourceLang:  "auto",
		Include:     []string{"**/*.class", "**/*.jar"},
		ProjectFile: DefaultProjectFile,
		Concurrency: 3,
		MaxRetries:  3,
	}
}

// Load reads clokit.yaml from the given directory and fills in defaults.
// A missing file yields Default() with no error.
func Load(rootDir string) (*File, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.applyDefaults()
	if err := f.validate(path); err != nil {
		return nil, err
	}
	return &f, nil
}

// Save writes the configuration to rootDir/clokit.yaml.
func (f *File) Save(rootDir string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(rootDir, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (f *File) applyDefaults() {
	d := Default()
	if f.Engine == "" {
		f.Engine = d.Engine
	}
	if f.SourceLang == "" {
		f.SourceLang = d.SourceLang
	}
	if len(f.Include) == 0 {
		f.Include = d.Include
	}
	if f.ProjectFile == "" {
		f.ProjectFile = d.ProjectFile
	}
	if f.Concurrency == 0 {
		f.Concurrency = d.Concurrency
	}
	if f.MaxRetries == 0 {
		f.MaxRetries = d.MaxRetries
	}
}

func (f *File) validate(path string) error {
	if f.Concurrency < 0 {
		return fmt.Errorf("%s: concurrency must be positive", path)
	}
	if f.MaxRetries < 0 {
		return fmt.Errorf("%s: max_retries must be positive", path)
	}
	if f.RequestsPerSecond < 0 {
		return fmt.Errorf("%s: requests_per_second must not be negative", path)
	}
	return nil
}
