package record

import "errors"

var (
	// ErrOutOfBounds indicates a field, element or tail access outside the instance.
	ErrOutOfBounds = errors.New("record: out of bounds")
	// ErrSizeLimit indicates a size or length that does not fit its length field
	// or the configured tail limit.
	ErrSizeLimit = errors.New("record: size limit exceeded")
	// ErrNegativeLength indicates a negative length or offset argument.
	ErrNegativeLength = errors.New("record: negative length")
	// ErrValueRange indicates a value that cannot be stored in the field width.
	ErrValueRange = errors.New("record: value out of range")
	// ErrKind indicates an accessor used on a field or segment of another kind.
	ErrKind = errors.New("record: kind mismatch")
	// ErrNotResizable indicates a tail resize on a wrapped (borrowed) instance.
	ErrNotResizable = errors.New("record: wrapped instance cannot be resized")
	// ErrFieldNotInSchema indicates a field handle from a different schema.
	ErrFieldNotInSchema = errors.New("record: field not in schema")
	// ErrUnknownField indicates a field name the schema does not declare.
	ErrUnknownField = errors.New("record: unknown field")
	// ErrUnknownSegment indicates a tail segment name the schema does not declare.
	ErrUnknownSegment = errors.New("record: unknown tail segment")
	// ErrInvalidSchema indicates a field list that cannot be laid out.
	ErrInvalidSchema = errors.New("record: invalid schema")
	// ErrSchemaConflict indicates a name registered twice with different layouts.
	ErrSchemaConflict = errors.New("record: schema conflict")
	// ErrDecode indicates a malformed tail sub-format.
	ErrDecode = errors.New("record: malformed tail data")
	// ErrTextCodec wraps failures of the text codec.
	ErrTextCodec = errors.New("record: text codec")
	// ErrFormula wraps failures of the formula codec.
	ErrFormula = errors.New("record: formula codec")
	// ErrNoFormulaCodec indicates a formula access without a configured codec.
	ErrNoFormulaCodec = errors.New("record: no formula codec configured")
)
