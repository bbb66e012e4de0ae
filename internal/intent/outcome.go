package intent

// Outcome is the terminal value of one resolution: *Accepted or *Refused.
type Outcome interface {
	outcome()
}

type Reason string

const (
	ReasonUnknownTable       Reason = "unknown table"
	ReasonNoAlignedMetric    Reason = "no domain-aligned metric"
	ReasonDomainViolation    Reason = "domain violation"
	ReasonSchemaViolation    Reason = "schema violation"
	ReasonCastMissing        Reason = "required cast missing"
	ReasonNotExecutable      Reason = "not executable"
	ReasonFallbackNotAllowed Reason = "semantic fallback not allowed"
)

type Accepted struct {
	SQL        string
	Confidence float64
	Validation Validation
	Intent     SanitizedIntent
	Warnings   []string
	Rounds     int
}

type Refused struct {
	Reason           Reason
	Details          []string
	AvailableColumns []string
	AvailableTables  []string
	Rounds           int
}

func (*Accepted) outcome() {}
func (*Refused) outcome()  {}

// View is the wire form of an outcome shared by the HTTP API and the CLI.
type View struct {
	Status           string           `json:"status"`
	SQL              string           `json:"sql,omitempty"`
	Confidence       float64          `json:"confidence,omitempty"`
	SemanticFallback bool             `json:"semantic_fallback,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
	Casts            []CastDirective  `json:"type_casting,omitempty"`
	Intent           *SanitizedIntent `json:"intent,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	Details          []string         `json:"details,omitempty"`
	AvailableColumns []string         `json:"available_columns,omitempty"`
	AvailableTables  []string         `json:"available_tables,omitempty"`
	Rounds           int              `json:"validation_rounds"`
}

const (
	StatusAccepted = "accepted"
	StatusRefused  = "refused"
)

func ViewOf(o Outcome) View {
	switch v := o.(type) {
	case *Accepted:
		in := v.Intent
		return View{
			Status:           StatusAccepted,
			SQL:              v.SQL,
			Confidence:       v.Confidence,
			SemanticFallback: in.HasFallback(),
			Warnings:         v.Warnings,
			Casts:            v.Validation.Casts(),
			Intent:           &in,
			Rounds:           v.Rounds,
		}
	case *Refused:
		return View{
			Status:           StatusRefused,
			Reason:           string(v.Reason),
			Details:          v.Details,
			AvailableColumns: v.AvailableColumns,
			AvailableTables:  v.AvailableTables,
			Rounds:           v.Rounds,
		}
	}
	return View{}
}
