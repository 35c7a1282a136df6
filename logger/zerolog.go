// Package logger contains implementations of shroudlib.Logger.
package logger

import (
	"fmt"
	"strings"

	"github.com/akab00m/shroud/shroudlib"
	"github.com/rs/zerolog"
)

type zeroLogContext struct {
	log  zerolog.Logger
	name string
}

func (z zeroLogContext) Named(name string) shroudlib.Logger {
	if z.name != "" {
		name = z.name + "." + name
	}

	return zeroLogContext{
		log:  z.log,
		name: name,
	}
}

func (z zeroLogContext) BindInt(name string, value int) shroudlib.Logger {
	return zeroLogContext{
		log:  z.log.With().Int(name, value).Logger(),
		name: z.name,
	}
}

func (z zeroLogContext) BindStr(name, value string) shroudlib.Logger {
	return zeroLogContext{
		log:  z.log.With().Str(name, value).Logger(),
		name: z.name,
	}
}

func (z zeroLogContext) BindJSON(name, value string) shroudlib.Logger {
	return zeroLogContext{
		log:  z.log.With().RawJSON(name, []byte(value)).Logger(),
		name: z.name,
	}
}

// Printf is here for libraries which want a printf-like logger (ants).
func (z zeroLogContext) Printf(format string, args ...interface{}) {
	z.Debug(fmt.Sprintf(strings.TrimSpace(format), args...))
}

func (z zeroLogContext) Info(msg string) {
	z.emit(z.log.Info(), msg)
}

func (z zeroLogContext) InfoError(msg string, err error) {
	z.emit(z.log.Info().Err(err), msg)
}

func (z zeroLogContext) Warning(msg string) {
	z.emit(z.log.Warn(), msg)
}

func (z zeroLogContext) WarningError(msg string, err error) {
	z.emit(z.log.Warn().Err(err), msg)
}

func (z zeroLogContext) Debug(msg string) {
	z.emit(z.log.Debug(), msg)
}

func (z zeroLogContext) DebugError(msg string, err error) {
	z.emit(z.log.Debug().Err(err), msg)
}

func (z zeroLogContext) emit(evt *zerolog.Event, msg string) {
	evt.Str("logger", z.name).Msg(msg)
}

// NewZeroLogger returns a logger which uses a given zerolog instance.
func NewZeroLogger(log zerolog.Logger) shroudlib.Logger {
	return zeroLogContext{
		log: log,
	}
}
