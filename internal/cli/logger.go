package cli

import "go.uber.org/zap"

// agentLogger wraps zap for verbose debug with session context.
type agentLogger struct {
	sugared *zap.SugaredLogger
	globals *Globals
}

func newAgentLogger(globals *Globals) *agentLogger {
	if globals == nil || !globals.Verbose {
		return &agentLogger{}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	logger, _ := cfg.Build()
	return &agentLogger{
		sugared: logger.Sugar(),
		globals: globals,
	}
}

func (l *agentLogger) Debug(format string, args ...interface{}) {
	if l.sugared == nil {
		return
	}
	l.sugared.With("tool", "fcdbg").Debugf(format, args...)
}
