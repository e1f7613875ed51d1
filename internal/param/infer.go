package param

import (
	"math"
	"reflect"
)

// PersistentProbe is implemented by values backed by a persistent storage
// object. GetID returns the stable id and whether the object is currently
// persisted (a freshly-constructed PSCO that has never been made persistent
// reports ok=false).
type PersistentProbe interface {
	GetID() (id string, ok bool)
}

// NumericScalarProbe is a capability hook for an optional numeric library
// (e.g. a gonum/numpy-like scalar type) that must be treated as OBJECT
// rather than misclassified as a boxed float or int. It defaults to
// reporting no such library is present; callers that link one can replace
// it at startup.
var NumericScalarProbe = func(value interface{}) bool { return false }

// InferType returns the wire content type for a runtime value. The order
// of these checks is load-bearing: a persistent object must be recognized
// before any numeric/bool/string check, numeric-library scalars must be
// excluded before plain bool/int/float checks, and bool must be checked
// before int since bool is not a numeric kind here.
func InferType(value interface{}, depth int) ContentType {
	if c, matched := probePersistent(value); matched {
		return c
	}

	if NumericScalarProbe(value) {
		return ContentOBJECT
	}

	switch v := value.(type) {
	case bool:
		_ = v
		return ContentBOOL
	case string:
		_ = v
		return ContentSTRING
	}

	if value != nil {
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return intOrLong(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			n := rv.Uint()
			if n <= math.MaxInt32 {
				return ContentINT
			}
			return ContentLONG
		case reflect.Float32, reflect.Float64:
			return ContentDOUBLE
		}
	}

	if depth > 0 && isNonStringIterable(value) {
		return ContentCOLLECTION
	}

	return ContentOBJECT
}

func intOrLong(n int64) ContentType {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return ContentINT
	}
	return ContentLONG
}

// probePersistent implements the has_id/get_id dance: only values that
// implement PersistentProbe are considered at all; a panic from a
// misbehaving probe (analogous to the upstream TypeError on a bare class
// reference) falls back to OBJECT rather than propagating.
func probePersistent(value interface{}) (result ContentType, matched bool) {
	p, ok := value.(PersistentProbe)
	if !ok {
		return 0, false
	}
	matched = true
	defer func() {
		if recover() != nil {
			result = ContentOBJECT
		}
	}()
	id, hasID := p.GetID()
	if hasID && id != "" && id != "None" {
		return ContentEXTERNALPSCO, true
	}
	return ContentOBJECT, true
}

func isNonStringIterable(value interface{}) bool {
	if value == nil {
		return false
	}
	switch value.(type) {
	case string:
		return false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}
