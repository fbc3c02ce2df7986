package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/archq/internal/dslerr"
	"github.com/roach88/archq/internal/engine"
	"github.com/roach88/archq/internal/explain"
	"github.com/roach88/archq/internal/model"
	"github.com/roach88/archq/internal/translate"
)

// Scenario defines one query scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the targeted model. Defaults to unit.
	Model string `yaml:"model,omitempty"`

	// Backend forces a backend: auto (default), docstore or search.
	Backend string `yaml:"backend,omitempty"`

	// Payload is the DSL text, in strict JSON or the relaxed syntax.
	Payload string `yaml:"payload"`

	// Records seeds the store, keyed by model. Units are inserted before
	// object groups, and object groups before objects, so parents exist.
	// Without records the payload is compiled but not executed.
	Records map[string][]map[string]any `yaml:"records,omitempty"`

	// Expect is the outcome the run must produce.
	Expect Expect `yaml:"expect"`
}

// Expect lists the checked outcomes. Unset fields are not checked.
type Expect struct {
	// Backend is the backend the payload compiles for.
	Backend string `yaml:"backend,omitempty"`

	// FullText reports whether any hop needs the search engine.
	FullText *bool `yaml:"full_text,omitempty"`

	// Hops is the number of hops.
	Hops *int `yaml:"hops,omitempty"`

	// Error is the expected error code: a DSL code such as UNKNOWN_FIELD
	// or an engine code such as RESULT_CAP_EXCEEDED. When set, the run
	// must fail with it; when unset, it must not fail.
	Error string `yaml:"error,omitempty"`

	// ErrorPath is the expected error location inside the payload.
	ErrorPath string `yaml:"error_path,omitempty"`

	// Results are the identifiers the execution returns, in order.
	Results []string `yaml:"results,omitempty"`
}

// validName keeps scenario names usable as golden file names.
var validName = regexp.MustCompile(`^[a-z0-9_]+$`)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario of dir, in file name order.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := map[string]string{}
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario %q defined in both %s and %s", s.Name, prev, path)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validName.MatchString(s.Name) {
		return fmt.Errorf("name %q must match %s", s.Name, validName)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Payload == "" {
		return fmt.Errorf("payload is required")
	}
	if _, err := s.model(); err != nil {
		return err
	}
	if _, err := s.backend(); err != nil {
		return err
	}

	for key := range s.Records {
		if _, err := model.Parse(key); err != nil {
			return fmt.Errorf("records: %w", err)
		}
	}
	if len(s.Expect.Results) > 0 && len(s.Records) == 0 {
		return fmt.Errorf("expect.results needs records to execute against")
	}
	if s.Expect.Error != "" && !knownCode(s.Expect.Error) {
		return fmt.Errorf("expect.error: unknown code %q", s.Expect.Error)
	}
	if s.Expect.ErrorPath != "" && s.Expect.Error == "" {
		return fmt.Errorf("expect.error_path needs expect.error")
	}
	if s.Expect.Backend != "" {
		if _, err := translate.ParseBackend(s.Expect.Backend); err != nil {
			return fmt.Errorf("expect.backend: %w", err)
		}
	}
	return nil
}

func (s *Scenario) model() (model.Model, error) {
	if s.Model == "" {
		return model.Unit, nil
	}
	return model.Parse(s.Model)
}

func (s *Scenario) backend() (translate.Backend, error) {
	if s.Backend == "" || s.Backend == string(explain.Auto) {
		return explain.Auto, nil
	}
	return translate.ParseBackend(s.Backend)
}

func knownCode(code string) bool {
	for _, c := range dslerr.Codes() {
		if string(c) == code {
			return true
		}
	}
	switch engine.RuntimeErrorCode(code) {
	case engine.ErrCodeResultCapExceeded, engine.ErrCodeStoreFailure:
		return true
	}
	return false
}
