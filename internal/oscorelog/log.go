// Package oscorelog carries the ambient logging idiom from
// github.com/GiterLab/go-coap/debug.go forward: a package-level
// *logs.BeeLogger behind a pair of independent toggles, the same way the
// teacher's debug.go keeps debugEnable and healthMonitorEnable separate
// rather than folding both into one flag.
package oscorelog

import (
	"github.com/astaxie/beego/logs"
)

var debugEnable bool
var telemetryEnable bool

// GLog is the package-level logger, as in the teacher's debug.go.
var GLog *logs.BeeLogger

func init() {
	debugEnable = false
	telemetryEnable = false
	GLog = logs.NewLogger(10000)
	GLog.SetLogger("console", `{"level":7}`)
	GLog.EnableFuncCallDepth(true)
	GLog.SetLogFuncCallDepth(3)
}

// Debug enables or disables error-trace logging.
func Debug(enable bool) {
	debugEnable = enable
}

// Telemetry enables or disables per-message operational trace logging
// (the pipeline's "protected mid=... fresh=... seq=..." summary line),
// independent of Debug.
func Telemetry(enable bool) {
	telemetryEnable = enable
}

// SetLogger replaces the package-level logger.
func SetLogger(l *logs.BeeLogger) {
	if l != nil {
		GLog = l
	}
}

// Enabled reports whether error-trace logging is currently on.
func Enabled() bool { return debugEnable }

// TraceInfo logs an info-level trace line when telemetry is enabled.
func TraceInfo(format string, args ...interface{}) {
	if telemetryEnable {
		GLog.Informational(format, args...)
	}
}

// TraceError logs an error-level trace line when debug logging is enabled.
func TraceError(format string, args ...interface{}) {
	if debugEnable {
		GLog.Error(format, args...)
	}
}
