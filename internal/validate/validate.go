// Package validate runs the three ordered checks applied to every
// synthesized query: semantic, schema and type, and executability.
package validate

import (
	"github.com/intentsql/intentsql/internal/intent"
	"github.com/intentsql/intentsql/internal/schema"
)

type Input struct {
	Intent   intent.SanitizedIntent
	SQL      string
	Question string
	Schema   schema.Schema
}

// MultiPass is the production validator.
type MultiPass struct{}

// Validate runs all passes. Pass 3 checks the casts Pass 2 schedules, so a
// query synthesized without them is reported as needing reconstruction.
func (MultiPass) Validate(in Input) intent.Validation {
	semantic := Semantic(in)
	schemaPass := SchemaAndType(in)
	exec, castsOnly := Executability(in, schemaPass.TypeCasting)
	return intent.Validation{
		Semantic:               semantic,
		Schema:                 schemaPass,
		Executability:          exec,
		RequiresReconstruction: len(schemaPass.TypeCasting) > 0 || (!exec.Valid && castsOnly),
	}
}
