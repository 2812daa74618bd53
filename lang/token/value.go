package token

// Value carries the literal payload of a token that needs one: the decoded
// text of a string fragment, the parsed number, or the identifier spelling.
// Exactly one field is meaningful, selected by the Token it accompanies.
type Value struct {
	String string  // IDENT, FIELD, STATIC, STRING, INTERP_*, DOLLAR_STRING
	Int    int64   // INT
	Float  float64 // FLOAT
}
