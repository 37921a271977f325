package types

// ValueKind identifies the kind of scalar flowing through a port.
type ValueKind string

const (
	// ValueKindNumber is a numeric scalar.
	ValueKindNumber ValueKind = "number"
	// ValueKindBool is a boolean scalar.
	ValueKindBool ValueKind = "bool"
)

// Value is the scalar carried on every port during evaluation. A Value may be
// invalid: indicators publish invalid values until their rolling window has
// filled, and invalid values never satisfy a condition or fire an action.
type Value struct {
	Kind  ValueKind
	Num   float64
	Bool  bool
	Valid bool
}

// NumberValue returns a valid numeric value.
func NumberValue(n float64) Value {
	return Value{Kind: ValueKindNumber, Num: n, Valid: true}
}

// BoolValue returns a valid boolean value.
func BoolValue(b bool) Value {
	return Value{Kind: ValueKindBool, Bool: b, Valid: true}
}

// InvalidValue returns an invalid numeric value. Used for indicator warm-up.
func InvalidValue() Value {
	return Value{Kind: ValueKindNumber, Valid: false}
}

// NeutralValue returns the neutral substitute written for a faulted node's
// outputs: a valid zero so downstream consumers degrade instead of stalling.
func NeutralValue() Value {
	return Value{Kind: ValueKindNumber, Num: 0, Valid: true}
}

// Truthy reports whether the value fires a boolean consumer. Invalid values
// are never truthy.
func (v Value) Truthy() bool {
	if !v.Valid {
		return false
	}

	if v.Kind == ValueKindBool {
		return v.Bool
	}

	return v.Num != 0
}

// Number returns the numeric reading of the value. Booleans coerce to 0/1.
func (v Value) Number() float64 {
	if v.Kind == ValueKindBool {
		if v.Bool {
			return 1
		}

		return 0
	}

	return v.Num
}
