package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
)

// DefaultScriptTimeoutMs is the wall-clock budget for one custom-script call
// when the config does not override it.
const DefaultScriptTimeoutMs = 50

type EvalEngineV1Config struct {
	ScriptTimeoutMs int                        `yaml:"script_timeout_ms" json:"script_timeout_ms" validate:"gte=0" jsonschema:"title=Script Timeout,description=Wall-clock budget in milliseconds for one custom-script call,minimum=0"`
	StartTime       optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time for the tick range"`
	EndTime         optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time for the tick range"`
}

// UnmarshalYAML implements custom unmarshaling for EvalEngineV1Config.
func (c *EvalEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		ScriptTimeoutMs int        `yaml:"script_timeout_ms"`
		StartTime       *time.Time `yaml:"start_time"`
		EndTime         *time.Time `yaml:"end_time"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.ScriptTimeoutMs = config.ScriptTimeoutMs
	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the configuration for invalid values.
func (c *EvalEngineV1Config) Validate() error {
	return validator.New().Struct(c)
}

// ScriptTimeout returns the effective script budget as a duration.
func (c *EvalEngineV1Config) ScriptTimeout() time.Duration {
	if c.ScriptTimeoutMs <= 0 {
		return DefaultScriptTimeoutMs * time.Millisecond
	}

	return time.Duration(c.ScriptTimeoutMs) * time.Millisecond
}

// GenerateSchema generates a JSON schema for the EvalEngineV1Config.
func (c *EvalEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "eval-engine-v1-config"
	schema.Description = "Configuration schema for EvalEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the EvalEngineV1Config.
func (c *EvalEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// EmptyConfig returns an EvalEngineV1Config with default values.
func EmptyConfig() EvalEngineV1Config {
	return EvalEngineV1Config{
		ScriptTimeoutMs: DefaultScriptTimeoutMs,
		StartTime:       optional.None[time.Time](),
		EndTime:         optional.None[time.Time](),
	}
}
