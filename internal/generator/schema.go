package generator

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// replySchema is the shape every AI reply must have before it becomes a
// Question.
const replySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["question_text", "correct_answer", "solution"],
  "properties": {
    "question_text": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "maxItems": 26,
      "items": {"type": "string", "minLength": 1}
    },
    "correct_answer": {"type": ["string", "number"]},
    "solution": {"type": "string"}
  }
}`

func compileSchema() (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(replySchema))
	if err != nil {
		return nil, fmt.Errorf("compile reply schema: %w", err)
	}
	return schema, nil
}

// validateReply checks a JSON document against the reply schema.
func validateReply(schema *gojsonschema.Schema, doc []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("reply does not match schema: %s", strings.Join(msgs, "; "))
}
