// Package typecast classifies declared column types into families and picks
// the explicit cast a string column needs before numeric aggregation.
package typecast

import (
	"strings"

	"github.com/intentsql/intentsql/internal/domain"
	"github.com/intentsql/intentsql/internal/intent"
)

type Family string

const (
	FamilyInteger  Family = "integer"
	FamilyFloat    Family = "float"
	FamilyDecimal  Family = "decimal"
	FamilyString   Family = "string"
	FamilyBoolean  Family = "boolean"
	FamilyTemporal Family = "temporal"
	FamilyBinary   Family = "binary"
	FamilyUnknown  Family = "unknown"
)

type Class int

const (
	Unsupported Class = iota
	NumericNative
	StringCastable
)

func (c Class) String() string {
	switch c {
	case NumericNative:
		return "numeric"
	case StringCastable:
		return "string"
	default:
		return "unsupported"
	}
}

const (
	IntegerCast = "toInt64"
	FloatCast   = "toFloat64"
)

var families = map[string]Family{
	"int": FamilyInteger, "integer": FamilyInteger, "int2": FamilyInteger, "int4": FamilyInteger,
	"int8": FamilyInteger, "int16": FamilyInteger, "int32": FamilyInteger, "int64": FamilyInteger,
	"int128": FamilyInteger, "int256": FamilyInteger, "uint8": FamilyInteger, "uint16": FamilyInteger,
	"uint32": FamilyInteger, "uint64": FamilyInteger, "uint128": FamilyInteger, "uint256": FamilyInteger,
	"tinyint": FamilyInteger, "smallint": FamilyInteger, "mediumint": FamilyInteger, "bigint": FamilyInteger,
	"hugeint": FamilyInteger, "uhugeint": FamilyInteger, "utinyint": FamilyInteger, "usmallint": FamilyInteger,
	"uinteger": FamilyInteger, "ubigint": FamilyInteger, "serial": FamilyInteger, "smallserial": FamilyInteger,
	"bigserial": FamilyInteger, "long": FamilyInteger,

	"float": FamilyFloat, "float4": FamilyFloat, "float8": FamilyFloat, "float32": FamilyFloat,
	"float64": FamilyFloat, "double": FamilyFloat, "double precision": FamilyFloat, "real": FamilyFloat,
	"bfloat16": FamilyFloat,

	"decimal": FamilyDecimal, "numeric": FamilyDecimal, "decimal32": FamilyDecimal, "decimal64": FamilyDecimal,
	"decimal128": FamilyDecimal, "decimal256": FamilyDecimal, "money": FamilyDecimal, "number": FamilyDecimal,

	"string": FamilyString, "varchar": FamilyString, "char": FamilyString, "character": FamilyString,
	"character varying": FamilyString, "text": FamilyString, "nvarchar": FamilyString, "nchar": FamilyString,
	"fixedstring": FamilyString, "bpchar": FamilyString, "tinytext": FamilyString, "mediumtext": FamilyString,
	"longtext": FamilyString, "clob": FamilyString, "citext": FamilyString,

	"bool": FamilyBoolean, "boolean": FamilyBoolean,

	"date": FamilyTemporal, "date32": FamilyTemporal, "datetime": FamilyTemporal, "datetime64": FamilyTemporal,
	"timestamptz": FamilyTemporal, "interval": FamilyTemporal,

	"blob": FamilyBinary, "bytea": FamilyBinary, "binary": FamilyBinary, "varbinary": FamilyBinary,
	"bytes": FamilyBinary, "longblob": FamilyBinary,
}

var wrappers = []string{"nullable(", "lowcardinality(", "array(", "simpleaggregatefunction("}

// FamilyOf recognises the family of a declared type regardless of spelling,
// size parameters, or nullable/low-cardinality/array wrappers.
func FamilyOf(declared string) Family {
	base := baseType(declared)
	if f, ok := families[base]; ok {
		return f
	}
	switch {
	case strings.HasPrefix(base, "timestamp"), base == "time", strings.HasPrefix(base, "time "):
		return FamilyTemporal
	case strings.HasPrefix(base, "character varying"):
		return FamilyString
	}
	return FamilyUnknown
}

// ClassOf reduces a declared type to how it can take part in numeric aggregation.
func ClassOf(declared string) Class {
	switch FamilyOf(declared) {
	case FamilyInteger, FamilyFloat, FamilyDecimal:
		return NumericNative
	case FamilyString:
		return StringCastable
	default:
		return Unsupported
	}
}

func IsNumericNative(declared string) bool {
	return ClassOf(declared) == NumericNative
}

// NeedsCastFor returns the directive required to aggregate column with agg.
// COUNT never needs a cast; only string-family columns are repaired.
func NeedsCastFor(agg intent.Aggregation, column, declared string) (intent.CastDirective, bool) {
	if !agg.Numeric() || FamilyOf(declared) != FamilyString {
		return intent.CastDirective{}, false
	}
	return intent.CastDirective{
		Column:      column,
		CurrentType: declared,
		TargetCast:  CastTargetFor(column),
	}, true
}

// CastTargetFor picks the integer cast for identifier, counter and age/year
// style names and the float cast for everything else.
func CastTargetFor(column string) string {
	tokens := domain.Tokenize(column)
	if len(tokens) == 0 {
		return FloatCast
	}
	switch tokens[len(tokens)-1] {
	case "id", "count", "qty", "year", "age":
		return IntegerCast
	}
	return FloatCast
}

// Wrap renders the cast call exactly as the synthesizer emits it.
func Wrap(fn, column string) string {
	return fn + "(" + column + ")"
}

func baseType(declared string) string {
	t := strings.ToLower(strings.TrimSpace(declared))
	for {
		unwrapped := false
		for _, w := range wrappers {
			if strings.HasPrefix(t, w) && strings.HasSuffix(t, ")") {
				t = strings.TrimSpace(t[len(w) : len(t)-1])
				unwrapped = true
			}
		}
		if strings.HasSuffix(t, "[]") {
			t = strings.TrimSpace(strings.TrimSuffix(t, "[]"))
			unwrapped = true
		}
		if !unwrapped {
			break
		}
	}
	if i := strings.Index(t, "("); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	t = strings.TrimSuffix(t, " not null")
	return t
}
