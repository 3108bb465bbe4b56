package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"learnstack/internal/apperr"
)

const schemaURL = "schema://catalog.json"

const seedSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["topics"],
  "properties": {
    "topics": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "order", "algorithms"],
        "properties": {
          "id": {"type": "string", "pattern": "^[A-Za-z][A-Za-z0-9_-]*$"},
          "name": {"type": "string", "minLength": 1},
          "order": {"type": "integer", "minimum": 0},
          "prerequisites": {"type": ["array", "null"], "items": {"type": "string"}},
          "difficulty": {"enum": ["", "beginner", "intermediate", "advanced"]},
          "estimatedMinutes": {"type": "integer", "minimum": 0},
          "algorithms": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["id", "name", "points"],
              "properties": {
                "id": {"type": "string", "pattern": "^[A-Za-z][A-Za-z0-9_-]*$"},
                "name": {"type": "string", "minLength": 1},
                "difficulty": {"enum": ["", "beginner", "intermediate", "advanced"]},
                "points": {"type": "integer", "minimum": 0}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var def any
		if err := json.Unmarshal([]byte(seedSchema), &def); err != nil {
			compileErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, def); err != nil {
			compileErr = fmt.Errorf("add catalog schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Validate checks the document against the seed schema, then checks ids are
// unique and prerequisites refer to other topics in the document.
func Validate(doc *Document) error {
	s, err := schema()
	if err != nil {
		return err
	}

	// the validator works on plain JSON values
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	if err := s.Validate(parsed); err != nil {
		return apperr.Wrap(apperr.Validation, "catalog does not match schema", err)
	}

	var problems []string
	topicIDs := make(map[string]bool, len(doc.Topics))
	for _, t := range doc.Topics {
		if topicIDs[t.ID] {
			problems = append(problems, fmt.Sprintf("duplicate topic id %q", t.ID))
		}
		topicIDs[t.ID] = true

		algoIDs := make(map[string]bool, len(t.Algorithms))
		for _, a := range t.Algorithms {
			if algoIDs[a.ID] {
				problems = append(problems, fmt.Sprintf("duplicate algorithm id %q in topic %q", a.ID, t.ID))
			}
			algoIDs[a.ID] = true
		}
	}
	for _, t := range doc.Topics {
		for _, pre := range t.Prerequisites {
			switch {
			case pre == t.ID:
				problems = append(problems, fmt.Sprintf("topic %q lists itself as a prerequisite", t.ID))
			case !topicIDs[pre]:
				problems = append(problems, fmt.Sprintf("topic %q has unknown prerequisite %q", t.ID, pre))
			}
		}
	}
	if len(problems) > 0 {
		return apperr.New(apperr.Validation, "invalid catalog: "+strings.Join(problems, "; "))
	}
	return nil
}
