package logging

import (
	"sort"

	"go.uber.org/zap/zapcore"
)

// newSampledCore gives every level in cfg.Levels its own sampling budget.
// Error and above, and levels without a budget, are never sampled. zap's
// sampler does not count levels below Debug, so a trace budget is ignored.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	budgeted := make([]zapcore.Level, 0, len(cfg.Levels))
	for lvl := range cfg.Levels {
		if lvl >= zapcore.DebugLevel && lvl < zapcore.ErrorLevel {
			budgeted = append(budgeted, lvl)
		}
	}
	sort.Slice(budgeted, func(i, j int) bool { return budgeted[i] < budgeted[j] })

	isBudgeted := func(l zapcore.Level) bool {
		for _, b := range budgeted {
			if b == l {
				return true
			}
		}
		return false
	}

	cores := []zapcore.Core{
		&levelCore{Core: core, allow: func(l zapcore.Level) bool { return !isBudgeted(l) }},
	}
	for _, lvl := range budgeted {
		budget := cfg.Levels[lvl]
		only := lvl
		cores = append(cores, zapcore.NewSamplerWithOptions(
			&levelCore{Core: core, allow: func(l zapcore.Level) bool { return l == only }},
			cfg.Tick.Duration(),
			budget.Initial,
			budget.Thereafter,
		))
	}
	return zapcore.NewTee(cores...)
}

// levelCore passes only entries whose level satisfies allow.
type levelCore struct {
	zapcore.Core
	allow func(zapcore.Level) bool
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.allow(lvl) && c.Core.Enabled(lvl)
}

func (c *levelCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), allow: c.allow}
}
