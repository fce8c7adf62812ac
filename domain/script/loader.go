package script

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// yamlScript is the YAML structure for script definitions.
type yamlScript struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Version     string     `yaml:"version"`
	Author      string     `yaml:"author"`
	Browser     string     `yaml:"browser"`
	Timeout     int        `yaml:"timeout"`
	Steps       []yamlStep `yaml:"steps"`
}

type yamlStep struct {
	Action            string       `yaml:"action"`
	Locator           *yamlLocator `yaml:"locator,omitempty"`
	URL               string       `yaml:"url,omitempty"`
	Text              string       `yaml:"text,omitempty"`
	Label             string       `yaml:"label,omitempty"`
	Name              string       `yaml:"name,omitempty"`
	Seconds           int          `yaml:"seconds,omitempty"`
	Expect            string       `yaml:"expect,omitempty"`
	Absent            bool         `yaml:"absent,omitempty"`
	Message           string       `yaml:"message,omitempty"`
	ContinueOnFailure bool         `yaml:"continueOnFailure"`
}

type yamlLocator struct {
	By    string `yaml:"by"`
	Value string `yaml:"value"`
}

// UnmarshalYAML also accepts the short form `{id: username}`.
func (l *yamlLocator) UnmarshalYAML(value *yaml.Node) error {
	type plain yamlLocator
	var p plain
	if err := value.Decode(&p); err == nil && p.By != "" {
		*l = yamlLocator(p)
		return nil
	}

	var short map[string]string
	if err := value.Decode(&short); err != nil {
		return err
	}
	if len(short) != 1 {
		return fmt.Errorf("line %d: locator needs by/value or a single strategy key", value.Line)
	}
	for by, v := range short {
		l.By, l.Value = by, v
	}
	return nil
}

// Parse decodes and validates a single script.
func Parse(data []byte) (*Script, error) {
	var ys yamlScript
	if err := yaml.Unmarshal(data, &ys); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	script := convertYAMLScript(&ys)
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %q: %w", script.Name, err)
	}
	return script, nil
}

// LoadFile reads and parses a script file.
func LoadFile(name string) (*Script, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file %s: %w", name, err)
	}
	script, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return script, nil
}

// Loader handles loading script definitions from various sources.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new script loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads every .yaml/.yml file in dir of fsys.
func (l *Loader) LoadFromFS(fsys fs.FS, dir string) error {
	return l.load(fsys, dir, func(name string) string { return name })
}

// LoadDir loads every script file in a directory on disk.
func (l *Loader) LoadDir(dir string) error {
	return l.load(os.DirFS(dir), ".", func(name string) string {
		return filepath.Join(dir, filepath.FromSlash(name))
	})
}

func (l *Loader) load(fsys fs.FS, dir string, origin func(name string) string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read scripts directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isScriptFile(entry.Name()) {
			continue
		}

		name := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read script file %s: %w", origin(name), err)
		}
		script, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", origin(name), err)
		}
		l.registry.RegisterFrom(script, origin(name))
	}

	return nil
}

func isScriptFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// convertYAMLScript converts a YAML script to a domain Script.
func convertYAMLScript(ys *yamlScript) *Script {
	script := &Script{
		Name:        ys.Name,
		Description: ys.Description,
		Version:     ys.Version,
		Author:      ys.Author,
		Browser:     ys.Browser,
		Timeout:     ys.Timeout,
		Steps:       make([]Step, len(ys.Steps)),
	}

	for i := range ys.Steps {
		script.Steps[i] = convertYAMLStep(&ys.Steps[i])
	}

	return script
}

func convertYAMLStep(ys *yamlStep) Step {
	step := Step{
		Action:            ActionType(ys.Action),
		URL:               ys.URL,
		Text:              ys.Text,
		Label:             ys.Label,
		Name:              ys.Name,
		Seconds:           ys.Seconds,
		Expect:            ys.Expect,
		Absent:            ys.Absent,
		Message:           ys.Message,
		ContinueOnFailure: ys.ContinueOnFailure,
	}

	if ys.Locator != nil {
		step.Locator = &Locator{By: ys.Locator.By, Value: ys.Locator.Value}
	}

	return step
}
