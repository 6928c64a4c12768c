package ilerr

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type Errors struct {
	errs []IleError
}

func (r *Errors) With(err ...IleError) *Errors {
	if r == nil {
		return &Errors{errs: err}
	}
	r.errs = append(r.errs, err...)
	return r
}

func (r *Errors) Merge(err *Errors) *Errors {
	if r == nil {
		return err
	}
	if err == nil {
		return r
	}
	if len(err.errs) == 0 {
		return r
	}
	return r.With(err.errs...)
}

func (r *Errors) Errors() []IleError {
	if r == nil {
		return nil
	}
	return r.errs
}

func (r *Errors) HasError() bool {
	if r == nil {
		return false
	}
	return len(r.errs) > 0
}

// Error makes Errors usable as a plain error, one diagnostic per line
func (r *Errors) Error() string {
	sb := strings.Builder{}
	for i, err := range r.Errors() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(FormatWithCode(err))
	}
	return sb.String()
}

func (r *Errors) LogValue() slog.Value {
	var vals []slog.Attr
	for i, v := range r.Errors() {
		vals = append(vals, slog.Attr{
			Key: fmt.Sprint("e", i),
			Value: slog.GroupValue(
				slog.Attr{
					Key:   "msg",
					Value: slog.StringValue(FormatWithCode(v)),
				},
			),
		})
	}
	return slog.GroupValue(vals...)
}

// CodeOf returns the ErrCode of the first IleError in err's chain, or None
func CodeOf(err error) ErrCode {
	var ileErr IleError
	if errors.As(err, &ileErr) {
		return ileErr.Code()
	}
	return None
}
