package market

import (
	"errors"
	"fmt"
)

// ErrNotSupported marks a dataset the source cannot provide at all.
var ErrNotSupported = errors.New("dataset not supported by source")

// DataUnavailableError 表示数据源没有返回可用数据；分析师遇到它时弃权（Neutral）。
type DataUnavailableError struct {
	Source  string
	Dataset string
	Ticker  string
	Cause   error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s %s for %s unavailable: %v", e.Source, e.Dataset, e.Ticker, e.Cause)
}

func (e *DataUnavailableError) Unwrap() error { return e.Cause }

func unavailable(source, dataset, ticker string, cause error) error {
	return &DataUnavailableError{Source: source, Dataset: dataset, Ticker: ticker, Cause: cause}
}

func unavailablef(source, dataset, ticker, format string, args ...any) error {
	return unavailable(source, dataset, ticker, fmt.Errorf(format, args...))
}

// IsDataUnavailable reports whether err (or anything it wraps) is a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var target *DataUnavailableError
	return errors.As(err, &target)
}
