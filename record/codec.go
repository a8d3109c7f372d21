package record

// TextCodec converts between platform strings and the legacy byte encoding
// used for strings stored in tails. textcodec.Codec implements it.
type TextCodec interface {
	Encode(s string) ([]byte, error)
	Decode(b []byte) (string, error)
}

// FormulaCodec compiles formula source into the opaque binary form stored in
// records and back. No implementation ships with this package.
type FormulaCodec interface {
	Compile(text string) ([]byte, error)
	Decompile(b []byte) (string, error)
}
