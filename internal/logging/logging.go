// Package logging holds the swappable package loggers used across the
// renderer. Every package starts silent until main hands it a logger.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var nop = slog.New(nopHandler{})

// Nop returns a logger that drops everything.
func Nop() *slog.Logger {
	return nop
}

// Var is a logger that can be replaced while other goroutines log through it.
// The zero value is ready to use and silent.
type Var struct {
	ptr atomic.Pointer[slog.Logger]
}

// Set replaces the logger. Nil makes it silent again.
func (v *Var) Set(l *slog.Logger) {
	if l == nil {
		l = nop
	}
	v.ptr.Store(l)
}

func (v *Var) Get() *slog.Logger {
	l := v.ptr.Load()
	if l == nil {
		return nop
	}
	return l
}
