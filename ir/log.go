package ir

import (
	"context"
	"log/slog"

	"github.com/cottand/hirc/frontend/types"
)

// slogInstruction wraps an Instruction as a slog.LogValuer to not render it
// unless it definitely needs to be logged
func slogInstruction(i Instruction) slog.LogValuer { return instructionLogValuer{i} }
func slogType(t types.Type) slog.LogValuer         { return typeLogValuer{t} }

type instructionLogValuer struct{ Instruction }
type typeLogValuer struct{ types.Type }

func (l instructionLogValuer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("str", InstructionString(l.Instruction)),
		slog.String("op", l.Opcode()),
	)
}
func (l typeLogValuer) LogValue() slog.Value { return slog.StringValue(typeString(l.Type)) }

// SlogHandler wraps underlying so that instructions and types given as attributes
// are printed lazily
func SlogHandler(underlying slog.Handler) slog.Handler {
	return &instructionLogHandler{underlying: underlying}
}

// Logger is SlogHandler applied to an existing logger
func Logger(underlying *slog.Logger) *slog.Logger {
	return slog.New(SlogHandler(underlying.Handler()))
}

type instructionLogHandler struct {
	underlying slog.Handler
}

func wrapAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() != slog.KindAny {
		return attr
	}
	switch value := attr.Value.Any().(type) {
	case Instruction:
		attr.Value = slog.AnyValue(slogInstruction(value))
	case types.Type:
		attr.Value = slog.AnyValue(slogType(value))
	}
	return attr
}

func (l *instructionLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return l.underlying.Enabled(ctx, level)
}

func (l *instructionLogHandler) Handle(ctx context.Context, record slog.Record) error {
	newRecord := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		newRecord.AddAttrs(wrapAttr(attr))
		return true
	})
	return l.underlying.Handle(ctx, newRecord)
}

func (l *instructionLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrapped := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		wrapped[i] = wrapAttr(attr)
	}
	return SlogHandler(l.underlying.WithAttrs(wrapped))
}

func (l *instructionLogHandler) WithGroup(name string) slog.Handler {
	return SlogHandler(l.underlying.WithGroup(name))
}
