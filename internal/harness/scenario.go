package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/atemporal/internal/canon"
)

// Scenario defines a conformance scenario: a flow of parse calls with
// expected outcomes, and assertions over the whole trace.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Options apply to every step unless the step overrides them.
	Options ScenarioOptions `yaml:"options,omitempty"`

	// Flow is the ordered list of parse calls.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace. Optional.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ScenarioOptions configures the coordinator a scenario runs on.
type ScenarioOptions struct {
	Zone        string `yaml:"zone,omitempty"`
	Calendar    string `yaml:"calendar,omitempty"`
	Strict      bool   `yaml:"strict,omitempty"`
	DefaultZone string `yaml:"default_zone,omitempty"`
	Retry       bool   `yaml:"retry,omitempty"`
	Memo        bool   `yaml:"memo,omitempty"`
}

// Step is one parse call.
type Step struct {
	// Input is the raw value. A missing input parses nil.
	Input any `yaml:"input"`

	// As converts Input before parsing: "native" or "external".
	As string `yaml:"as,omitempty"`

	Zone     *string `yaml:"zone,omitempty"`
	Calendar string  `yaml:"calendar,omitempty"`
	Strict   *bool   `yaml:"strict,omitempty"`

	// Expect is checked against the result. If nil, any outcome passes.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step. Every field that is set
// must match.
type Expect struct {
	// Timestamp is the expected canonical rendering.
	Timestamp string `yaml:"timestamp,omitempty"`

	// Code is the expected error code. Implies failure.
	Code string `yaml:"code,omitempty"`

	// MessageContains must appear in the error text.
	MessageContains string `yaml:"message_contains,omitempty"`

	Strategy string `yaml:"strategy,omitempty"`
	FastPath *bool  `yaml:"fast_path,omitempty"`
	Cached   *bool  `yaml:"cached,omitempty"`

	// Fields is a subset match on the result's calendar fields.
	Fields map[string]int `yaml:"fields,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Strategy is used by strategy_used and strategy_count.
	Strategy string `yaml:"strategy,omitempty"`

	// Strategies is the expected order for strategy_order.
	Strategies []string `yaml:"strategies,omitempty"`

	// Count is used by strategy_count, failure_count and cached_count.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStrategyUsed  = "strategy_used"
	AssertStrategyOrder = "strategy_order"
	AssertStrategyCount = "strategy_count"
	AssertFailureCount  = "failure_count"
	AssertCachedCount   = "cached_count"
)

// Input conversions.
const (
	AsNative   = "native"
	AsExternal = "external"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if s.Options.Zone != "" && !canon.ValidZone(s.Options.Zone) {
		return fmt.Errorf("options: unknown zone %q", s.Options.Zone)
	}
	if s.Options.DefaultZone != "" && !canon.ValidZone(s.Options.DefaultZone) {
		return fmt.Errorf("options: unknown default_zone %q", s.Options.DefaultZone)
	}

	for i, step := range s.Flow {
		switch step.As {
		case "", AsNative, AsExternal:
		default:
			return fmt.Errorf("flow[%d]: unknown conversion %q", i, step.As)
		}
		if step.Expect != nil && step.Expect.Timestamp != "" && step.Expect.Code != "" {
			return fmt.Errorf("flow[%d].expect: timestamp and code are mutually exclusive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStrategyUsed:
		if a.Strategy == "" {
			return fmt.Errorf("assertions[%d]: strategy is required for strategy_used", index)
		}
	case AssertStrategyOrder:
		if len(a.Strategies) == 0 {
			return fmt.Errorf("assertions[%d]: strategies list is required for strategy_order", index)
		}
	case AssertStrategyCount:
		if a.Strategy == "" {
			return fmt.Errorf("assertions[%d]: strategy is required for strategy_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for strategy_count", index)
		}
	case AssertFailureCount, AssertCachedCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
