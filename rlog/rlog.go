// Package rlog is a trimmed leveled logger for the control plane, built on
// RFC 5424 message framing so log lines carry hostname/appname/structured
// data the way a syslog-aware collector expects.
package rlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
	FATAL
)

func (l Level) String() string {
	switch l {
	case OFF:
		return "OFF"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	case FATAL:
		return "FATAL"
	}
	return "UNKNOWN"
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.Daemon | rfc5424.Debug
	case INFO:
		return rfc5424.Daemon | rfc5424.Info
	case WARN:
		return rfc5424.Daemon | rfc5424.Warning
	case ERROR:
		return rfc5424.Daemon | rfc5424.Error
	case CRITICAL:
		return rfc5424.Daemon | rfc5424.Crit
	case FATAL:
		return rfc5424.Daemon | rfc5424.Emergency
	}
	return rfc5424.Daemon | rfc5424.Debug
}

const (
	maxHostname = 255
	maxAppname  = 48
	maxMsgID    = 32

	// DefaultMsgID tags every message the way the teacher's ingest logger
	// tags its RFC5424 structured-data block.
	DefaultMsgID = "roc@1"
)

// Logger is nil-safe: a nil *Logger discards everything, so subsystems can
// accept a *Logger without a separate "is logging enabled" check.
type Logger struct {
	mtx      sync.Mutex
	wtr      io.Writer
	lvl      Level
	hostname string
	appname  string
}

// New returns a logger writing RFC5424-framed lines to wtr at lvl. appname
// identifies the subsystem (e.g. "roc.nix", "roc.npc") in the message's
// APP-NAME field.
func New(wtr io.Writer, lvl Level, appname string) *Logger {
	host, _ := os.Hostname()
	if len(host) > maxHostname {
		host = host[:maxHostname]
	}
	if len(appname) > maxAppname {
		appname = appname[:maxAppname]
	}
	return &Logger{wtr: wtr, lvl: lvl, hostname: host, appname: appname}
}

// Default is a process-wide logger writing to stderr at INFO.
var Default = New(os.Stderr, INFO, "roc")

func (l *Logger) SetLevel(lvl Level) {
	if l == nil {
		return
	}
	l.mtx.Lock()
	l.lvl = lvl
	l.mtx.Unlock()
}

func (l *Logger) level() Level {
	if l == nil {
		return OFF
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.lvl
}

func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) { l.output(DEBUG, msg, sds...) }
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam)  { l.output(INFO, msg, sds...) }
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam)  { l.output(WARN, msg, sds...) }
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) { l.output(ERROR, msg, sds...) }
func (l *Logger) Critical(msg string, sds ...rfc5424.SDParam) {
	l.output(CRITICAL, msg, sds...)
}

func (l *Logger) Debugf(f string, args ...interface{}) { l.output(DEBUG, fmt.Sprintf(f, args...)) }
func (l *Logger) Infof(f string, args ...interface{})  { l.output(INFO, fmt.Sprintf(f, args...)) }
func (l *Logger) Warnf(f string, args ...interface{})  { l.output(WARN, fmt.Sprintf(f, args...)) }
func (l *Logger) Errorf(f string, args ...interface{}) { l.output(ERROR, fmt.Sprintf(f, args...)) }

func (l *Logger) output(lvl Level, msg string, sds ...rfc5424.SDParam) {
	if l == nil || l.level() == OFF || lvl < l.level() {
		return
	}
	b, err := genMessage(time.Now(), lvl.priority(), l.hostname, l.appname, msg, sds...)
	if err != nil || len(b) == 0 {
		return
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	io.WriteString(l.wtr, strings.TrimRight(string(b), "\n\t\r"))
	io.WriteString(l.wtr, "\n")
}

func genMessage(ts time.Time, prio rfc5424.Priority, hostname, appname, msg string, sds ...rfc5424.SDParam) ([]byte, error) {
	m := rfc5424.Message{
		Priority:  prio,
		Timestamp: ts,
		Hostname:  hostname,
		AppName:   appname,
		MessageID: DefaultMsgID,
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{
			{ID: DefaultMsgID, Parameters: sds},
		}
	}
	return m.MarshalBinary()
}
