package core

import (
	"errors"
)

// ErrorKind classifies the errors reported by the library.
type ErrorKind int

// enumeration of ErrorKind
const (
	KindUnknown ErrorKind = iota
	KindInvalidObject
	KindInvalidValue
	KindInvalidType
	KindInvalidScale
	KindInvalidDistribution
	KindInvalidParameter
	KindInvalidConfiguration
	KindInvalidName
	KindInvalidExpression
	KindInvalidHandle
	KindInvalidFeatures
	KindInvalidEvaluation
	KindInvalidTuner
	KindOutOfBounds
	KindSamplingUnsuccessful
	KindOutOfMemory
	KindUnsupportedOperation
	KindNotEnoughData
	KindHandleDuplicate
	KindSystem
)

var kindNames = map[ErrorKind]string{
	KindUnknown:              "unknown error",
	KindInvalidObject:        "invalid object",
	KindInvalidValue:         "invalid value",
	KindInvalidType:          "invalid type",
	KindInvalidScale:         "invalid scale",
	KindInvalidDistribution:  "invalid distribution",
	KindInvalidParameter:     "invalid parameter",
	KindInvalidConfiguration: "invalid configuration",
	KindInvalidName:          "invalid name",
	KindInvalidExpression:    "invalid expression",
	KindInvalidHandle:        "invalid handle",
	KindInvalidFeatures:      "invalid features",
	KindInvalidEvaluation:    "invalid evaluation",
	KindInvalidTuner:         "invalid tuner",
	KindOutOfBounds:          "out of bounds",
	KindSamplingUnsuccessful: "sampling unsuccessful",
	KindOutOfMemory:          "out of memory",
	KindUnsupportedOperation: "unsupported operation",
	KindNotEnoughData:        "not enough data",
	KindHandleDuplicate:      "duplicate handle",
	KindSystem:               "system error",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// kindError is the concrete type behind the sentinel errors below.
type kindError struct {
	kind ErrorKind
}

func (e *kindError) Error() string {
	return e.kind.String()
}

var (
	ErrInvalidObject        error = &kindError{KindInvalidObject}
	ErrInvalidValue         error = &kindError{KindInvalidValue}
	ErrInvalidType          error = &kindError{KindInvalidType}
	ErrInvalidScale         error = &kindError{KindInvalidScale}
	ErrInvalidDistribution  error = &kindError{KindInvalidDistribution}
	ErrInvalidParameter     error = &kindError{KindInvalidParameter}
	ErrInvalidConfiguration error = &kindError{KindInvalidConfiguration}
	ErrInvalidName          error = &kindError{KindInvalidName}
	ErrInvalidExpression    error = &kindError{KindInvalidExpression}
	ErrInvalidHandle        error = &kindError{KindInvalidHandle}
	ErrInvalidFeatures      error = &kindError{KindInvalidFeatures}
	ErrInvalidEvaluation    error = &kindError{KindInvalidEvaluation}
	ErrInvalidTuner         error = &kindError{KindInvalidTuner}
	ErrOutOfBounds          error = &kindError{KindOutOfBounds}
	ErrSamplingUnsuccessful error = &kindError{KindSamplingUnsuccessful}
	ErrOutOfMemory          error = &kindError{KindOutOfMemory}
	ErrUnsupportedOperation error = &kindError{KindUnsupportedOperation}
	ErrNotEnoughData        error = &kindError{KindNotEnoughData}
	ErrHandleDuplicate      error = &kindError{KindHandleDuplicate}
	ErrSystem               error = &kindError{KindSystem}
)

// KindOf returns the kind of the first library sentinel found in err's chain,
// or KindUnknown.
func KindOf(err error) ErrorKind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}
