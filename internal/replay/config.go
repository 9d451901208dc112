package replay

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-bracket/internal/bracket"
	"github.com/rxtech-lab/argo-bracket/internal/trading/commission_fee"
	"github.com/rxtech-lab/argo-bracket/pkg/errors"
	"gopkg.in/yaml.v3"
)

const holidayLayout = "2006-01-02"

// RunConfig is the replay configuration file: the bracket settings plus the simulated account.
type RunConfig struct {
	bracket.Config `yaml:",inline"`

	StartingCash float64              `yaml:"starting_cash" json:"starting_cash" jsonschema:"title=Starting Cash,description=Capital base of the simulated account in USD,exclusiveMinimum=0" validate:"gt=0"`
	Commission   commission_fee.Broker `yaml:"commission" json:"commission" jsonschema:"title=Commission,description=Commission model of the simulated broker,enum=zero_commission,enum=per_share_with_min,default=zero_commission" validate:"oneof=zero_commission per_share_with_min"`
	// Holidays are exchange closures in YYYY-MM-DD form. Weekends are always closed.
	Holidays []string `yaml:"holidays" json:"holidays,omitempty" jsonschema:"title=Holidays,description=Dates the exchange is closed (YYYY-MM-DD)" validate:"dive,datetime=2006-01-02"`
}

// EmptyRunConfig returns a RunConfig with default values.
func EmptyRunConfig() RunConfig {
	return RunConfig{
		Config:       bracket.EmptyConfig(),
		StartingCash: 0,
		Commission:   commission_fee.BrokerZero,
		Holidays:     nil,
	}
}

// Validate validates the account settings and the embedded bracket config.
func (c *RunConfig) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid run config", err)
	}

	return nil
}

// HolidayDates parses Holidays. Call Validate first.
func (c *RunConfig) HolidayDates() ([]time.Time, error) {
	dates := make([]time.Time, 0, len(c.Holidays))

	for _, holiday := range c.Holidays {
		date, err := time.Parse(holidayLayout, holiday)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid holiday %q", holiday)
		}

		dates = append(dates, date)
	}

	return dates, nil
}

// ParseRunConfig decodes a YAML document on top of EmptyRunConfig and validates the result.
func ParseRunConfig(data []byte) (RunConfig, error) {
	config := EmptyRunConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return RunConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse run config", err)
	}

	if err := config.Validate(); err != nil {
		return RunConfig{}, err
	}

	return config, nil
}

// LoadRunConfig reads and parses a YAML config file.
func LoadRunConfig(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return ParseRunConfig(data)
}

// GenerateSchemaJSON generates a JSON schema string for the RunConfig.
func (c *RunConfig) GenerateSchemaJSON() (string, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		Mapper:                    bracket.SchemaMapper,
	}

	schema := reflector.Reflect(c)
	schema.Title = "bracket-replay-config"
	schema.Description = "Configuration schema for replaying snapshots through the bracket order manager"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
