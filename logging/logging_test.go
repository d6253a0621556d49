package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseFlag(t *testing.T) {
	tests := []struct {
		s    string
		flag Flag
		ok   bool
	}{
		{"", Nil, true},
		{"nil", Nil, true},
		{" Performance ", Performance, true},
		{"DEBUG", Debug, true},
		{"verbose", Nil, false},
	}

	for i, test := range tests {
		flag, err := ParseFlag(test.s)
		if (err == nil) != test.ok {
			t.Errorf("%d) ParseFlag('%s') gave error %v.", i, test.s, err)
		} else if flag != test.flag {
			t.Errorf("%d) ParseFlag('%s') = %s, expected %s.",
				i, test.s, flag, test.flag)
		}
	}
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		flag  Flag
		level logrus.Level
	}{
		{Nil, logrus.InfoLevel},
		{Performance, logrus.DebugLevel},
		{Debug, logrus.TraceLevel},
	}
	for _, test := range tests {
		log := New(test.flag, &bytes.Buffer{})
		if log.GetLevel() != test.level {
			t.Errorf("New(%s) has level %s, expected %s.",
				test.flag, log.GetLevel(), test.level)
		}
	}
}

func TestTimer(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Performance, buf)

	timer := Start(log, "sampling")
	if dt := timer.Stop(); dt < 0 {
		t.Errorf("Timer returned negative duration %s.", dt)
	}

	out := buf.String()
	for _, want := range []string{"Starting", "Finished", "stage=sampling",
		"elapsed=", "Alloc - "} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected '%s' in log output:\n%s", want, out)
		}
	}

	buf.Reset()
	Start(New(Nil, buf), "sampling").Stop()
	if strings.Contains(buf.String(), "Alloc - ") {
		t.Errorf("Nil logger reported memory usage:\n%s", buf.String())
	}
}
