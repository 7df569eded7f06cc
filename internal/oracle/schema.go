package oracle

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// responseSchema is the structural contract for oracle responses. A
// response that fails it is treated exactly like a transport failure:
// the caller degrades instead of trusting a malformed payload.
const responseSchema = `{
  "type": "object",
  "required": ["scores"],
  "properties": {
    "scores": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["program_id", "likelihood"],
        "properties": {
          "program_id": {"type": "string", "minLength": 1},
          "likelihood": {"type": "integer", "minimum": 0, "maximum": 100},
          "notes": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = gojsonschema.NewStringLoader(responseSchema)

// validateResponse checks a raw oracle payload against the contract
func validateResponse(body []byte) error {
	result, err := gojsonschema.Validate(compiledSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("response violates contract: %v", result.Errors())
	}
	return nil
}
