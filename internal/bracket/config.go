package bracket

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-bracket/internal/types"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPricePrecision is the number of decimals exit prices are rounded to.
const DefaultPricePrecision = 2

// Config holds the bracket parameters applied to every signal.
type Config struct {
	MaxHoldingDays       int        `yaml:"max_holding_days" json:"max_holding_days" jsonschema:"title=Max Holding Days,description=Trading days after the entry fill before the position is closed at market,minimum=1" validate:"gt=0"`
	ProfitTargetFraction float64    `yaml:"profit_target_fraction" json:"profit_target_fraction" jsonschema:"title=Profit Target Fraction,description=Profit target as a fraction of the entry fill price,exclusiveMinimum=0" validate:"gt=0"`
	StopLossFraction     float64    `yaml:"stop_loss_fraction" json:"stop_loss_fraction" jsonschema:"title=Stop Loss Fraction,description=Stop loss as a fraction of the entry fill price,exclusiveMinimum=0" validate:"gt=0"`
	AllocationPerSignal  float64    `yaml:"allocation_per_signal" json:"allocation_per_signal" jsonschema:"title=Allocation Per Signal,description=Notional in USD allocated to each admitted signal,exclusiveMinimum=0" validate:"gt=0"`
	Side                 types.Side `yaml:"side" json:"side" jsonschema:"title=Side,description=1 opens long positions and -1 opens short positions" validate:"oneof=1 -1"`
	PricePrecision       int        `yaml:"price_precision" json:"price_precision" jsonschema:"title=Price Precision,description=Decimals exit prices are rounded to,minimum=0,maximum=8,default=2" validate:"min=0,max=8"`
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid bracket config", err)
	}

	return nil
}

// ParseConfig decodes a YAML document on top of EmptyConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	config := EmptyConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse bracket config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// GenerateSchema generates a JSON schema for the Config
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		Mapper:                    SchemaMapper,
	}

	schema := reflector.Reflect(c)
	schema.Title = "bracket-config"
	schema.Description = "Configuration schema for the bracket order manager"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// SchemaMapper renders types.Side as an integer enum instead of a bare integer.
func SchemaMapper(t reflect.Type) *jsonschema.Schema {
	if strings.Contains(t.String(), "types.Side") {
		return &jsonschema.Schema{
			Type: "integer",
			Enum: []any{int(types.SideLong), int(types.SideShort)},
		}
	}

	return nil
}

// GenerateSchemaJSON generates a JSON schema string for the Config
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// EmptyConfig returns a Config with default values. It does not validate until the fractions and
// allocation are filled in.
func EmptyConfig() Config {
	return Config{
		MaxHoldingDays:       0,
		ProfitTargetFraction: 0,
		StopLossFraction:     0,
		AllocationPerSignal:  0,
		Side:                 types.SideLong,
		PricePrecision:       DefaultPricePrecision,
	}
}
