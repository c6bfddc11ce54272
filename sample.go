// Package queryproc implements the streaming query-processing pipeline:
// a chain of operators that transforms a time-ordered stream of samples
// produced by a storage cursor into the result stream delivered to a
// client.
package queryproc

import "fmt"

// Flags describes the shape of a Sample's payload.
type Flags uint8

const (
	// FlagEmpty marks the empty sentinel: a control sample carrying only
	// a timestamp, used to signal time-bucket boundaries and flush points.
	FlagEmpty Flags = 1 << iota
	// FlagParamID marks a sample that carries a meaningful series id.
	// Set on every non-empty sample and on metadata samples.
	FlagParamID
	// FlagFloat marks a sample whose value is a float64.
	FlagFloat
	// FlagBlob marks a sample whose value is an opaque byte range.
	FlagBlob
	// FlagUrgent marks a sample elevated by the anomaly detector.
	FlagUrgent
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Payload is the tagged value carried by a Sample.
type Payload struct {
	Flags Flags
	Float float64
	Blob  []byte
}

// Sample is an immutable (by convention) (paramid, timestamp, payload)
// triple flowing through the operator chain.
type Sample struct {
	ParamID   uint64
	Timestamp uint64
	Payload   Payload
}

// EmptySample constructs the empty sentinel for a bucket boundary at ts.
func EmptySample(ts uint64) Sample {
	return Sample{Timestamp: ts, Payload: Payload{Flags: FlagEmpty}}
}

// IsEmpty reports whether s is the empty sentinel.
func (s Sample) IsEmpty() bool { return s.Payload.Flags.Has(FlagEmpty) }

// FloatSample constructs a data sample carrying a float64 value.
func FloatSample(id, ts uint64, value float64) Sample {
	return Sample{
		ParamID:   id,
		Timestamp: ts,
		Payload:   Payload{Flags: FlagParamID | FlagFloat, Float: value},
	}
}

// ParamIDSample constructs a metadata sample: an id with no value.
func ParamIDSample(id, ts uint64) Sample {
	return Sample{ParamID: id, Timestamp: ts, Payload: Payload{Flags: FlagParamID}}
}

// WithUrgent returns a copy of s with FlagUrgent set.
func (s Sample) WithUrgent() Sample {
	s.Payload.Flags |= FlagUrgent
	return s
}

func (s Sample) String() string {
	if s.IsEmpty() {
		return fmt.Sprintf("empty@%d", s.Timestamp)
	}
	if s.Payload.Flags.Has(FlagFloat) {
		return fmt.Sprintf("(%d,%d,%v)", s.ParamID, s.Timestamp, s.Payload.Float)
	}
	return fmt.Sprintf("(%d,%d,<blob %dB>)", s.ParamID, s.Timestamp, len(s.Payload.Blob))
}

// Status is an in-band stream error code forwarded through SetError.
type Status struct {
	Code int
	err  error
}

// Well-known status codes, a subset of the C ABI's aku_Status.
const (
	StatusOK = iota
	StatusEAnomalyNegativeValue
	StatusEGeneric
)

var OK = Status{Code: StatusOK}

// EAnomalyNegativeValue is reported when a negative value reaches the
// anomaly detector, which only accepts non-negative measurements.
var EAnomalyNegativeValue = Status{Code: StatusEAnomalyNegativeValue}

// WrapError builds an EGeneric status carrying a producer-side fault
// (e.g. an I/O error from the storage cursor) without requiring the
// pipeline to understand its shape.
func WrapError(err error) Status {
	return Status{Code: StatusEGeneric, err: err}
}

func (s Status) Error() string {
	if s.err != nil {
		return s.err.Error()
	}
	switch s.Code {
	case StatusOK:
		return "OK"
	case StatusEAnomalyNegativeValue:
		return "EANOMALY_NEG_VAL"
	default:
		return "EGENERIC"
	}
}

func (s Status) Unwrap() error { return s.err }
