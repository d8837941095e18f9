package rewards

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

var ErrInvalidInput = errors.New("invalid reward")

const inputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "cost", "icon"],
  "properties": {
    "name": {"type": "string", "minLength": 1, "maxLength": 120},
    "cost": {"type": "integer", "minimum": 1},
    "icon": {"type": "string", "minLength": 1, "maxLength": 64}
  }
}`

var schema = mustSchema(inputSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return s
}

// ValidationError lists the schema violations of a reward payload.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(e.Details, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// DecodeInput validates a JSON reward payload and returns it with the name
// trimmed.
func DecodeInput(raw []byte) (models.RewardInput, error) {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return models.RewardInput{}, &ValidationError{Details: []string{err.Error()}}
	}
	if !res.Valid() {
		d := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			d = append(d, e.String())
		}
		return models.RewardInput{}, &ValidationError{Details: d}
	}

	var in models.RewardInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return models.RewardInput{}, &ValidationError{Details: []string{err.Error()}}
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	if in.Name == "" {
		return models.RewardInput{}, &ValidationError{Details: []string{"name: Name is required"}}
	}
	if in.Icon == "" {
		return models.RewardInput{}, &ValidationError{Details: []string{"icon: Icon is required"}}
	}
	return in, nil
}
