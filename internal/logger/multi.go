package logger

import "github.com/harrison/devscan/internal/models"

// Sink is a leveled logger that also receives scan lifecycle events.
type Sink interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	ScanProgress(p models.ScanProgress)
	ScanCompleted(scanID, outputPath string)
	ScanFailed(scanID, errText string)
}

// Multi fans every call out to several sinks in order. Nil sinks are skipped.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *Multi) Debugf(format string, args ...interface{}) {
	for _, s := range m.sinks {
		s.Debugf(format, args...)
	}
}

func (m *Multi) Infof(format string, args ...interface{}) {
	for _, s := range m.sinks {
		s.Infof(format, args...)
	}
}

func (m *Multi) Warnf(format string, args ...interface{}) {
	for _, s := range m.sinks {
		s.Warnf(format, args...)
	}
}

func (m *Multi) Errorf(format string, args ...interface{}) {
	for _, s := range m.sinks {
		s.Errorf(format, args...)
	}
}

func (m *Multi) ScanProgress(p models.ScanProgress) {
	for _, s := range m.sinks {
		s.ScanProgress(p)
	}
}

func (m *Multi) ScanCompleted(scanID, outputPath string) {
	for _, s := range m.sinks {
		s.ScanCompleted(scanID, outputPath)
	}
}

func (m *Multi) ScanFailed(scanID, errText string) {
	for _, s := range m.sinks {
		s.ScanFailed(scanID, errText)
	}
}
