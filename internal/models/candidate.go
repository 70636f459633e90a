package models

// ValueKind tags the dynamic type held by a PayloadValue.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueInteger
	ValueDouble
	ValueBool
	ValueList
	ValueStruct
)

func (k ValueKind) String() string {
	switch k {
	case ValueNull:
		return "null"
	case ValueString:
		return "string"
	case ValueInteger:
		return "integer"
	case ValueDouble:
		return "double"
	case ValueBool:
		return "bool"
	case ValueList:
		return "list"
	case ValueStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// PayloadValue is one untyped payload field as returned by a vector index.
// Only the field matching Kind is meaningful; list and struct contents are not carried.
type PayloadValue struct {
	Kind    ValueKind
	String  string
	Integer int64
	Double  float64
	Bool    bool
}

// StringValue returns a string-typed payload value.
func StringValue(s string) PayloadValue {
	return PayloadValue{Kind: ValueString, String: s}
}

// VectorKind tags how a stored vector was returned.
type VectorKind int

const (
	VectorDense VectorKind = iota
	VectorSparse
	VectorMultiDense
	VectorNamed
)

func (k VectorKind) String() string {
	switch k {
	case VectorDense:
		return "dense"
	case VectorSparse:
		return "sparse"
	case VectorMultiDense:
		return "multi-dense"
	case VectorNamed:
		return "named"
	default:
		return "unknown"
	}
}

// StoredVector is the vector stored alongside a candidate. Data is only set for dense vectors.
type StoredVector struct {
	Kind VectorKind
	Data []float32
}

// DenseVector wraps data as a dense stored vector.
func DenseVector(data []float32) *StoredVector {
	return &StoredVector{Kind: VectorDense, Data: data}
}

// RawCandidate is a scored point as returned by the vector index, before decoding.
type RawCandidate struct {
	Score   float32
	Vector  *StoredVector
	Payload map[string]PayloadValue
}

// Point is the unit written into a vector index.
type Point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"-"`
	Payload map[string]string `json:"payload"`
}
