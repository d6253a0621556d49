package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/swift-toolbox/snaptools/logging"
	"github.com/swift-toolbox/snaptools/math/rand"
)

type configFile interface {
	ReadConfig(fname string) error
	ExampleConfig() string
}

func TestExampleFiles(t *testing.T) {
	tests := []configFile{&GlobalConfig{}}
	for _, mode := range ModeNames {
		if mode.ExampleConfig() != "" { tests = append(tests, mode) }
	}

	dir := t.TempDir()
	for i := range tests {
		mode := tests[i]
		fname := filepath.Join(dir, "example.config")
		if err := os.WriteFile(fname, []byte(mode.ExampleConfig()), 0644); err != nil {
			t.Fatal(err)
		}

		err := mode.ReadConfig(fname)
		if err != nil {
			t.Errorf("%d) Got error when parsing config file:\n%s",
				i, err.Error())
		}
	}
}

func TestDefaultConfigs(t *testing.T) {
	for name, mode := range ModeNames {
		if err := mode.ReadConfig(""); err != nil {
			t.Errorf("%s) Got error when reading the default config: %s",
				name, err.Error())
		}
	}

	g := &GlobalConfig{}
	if err := g.ReadConfig(""); err != nil { t.Fatal(err) }
	if g.Workers != runtime.NumCPU() || g.LogFlag != logging.Nil ||
		g.Generator != rand.Xorshift {
		t.Errorf("Expected default global config, got %+v.", g)
	}
}

func TestGlobalConfigErrors(t *testing.T) {
	tests := []string{
		"[snaptools.config]\nWorkers = -1",
		"[snaptools.config]\nLogMode = loud",
		"[snaptools.config]\nGenerator = dice",
		"[snaptools.config]\nVersion = 9.0.0",
		"[downsample.config]\nWorkers = 2",
	}

	dir := t.TempDir()
	for i := range tests {
		fname := filepath.Join(dir, "bad.config")
		if err := os.WriteFile(fname, []byte(tests[i]), 0644); err != nil {
			t.Fatal(err)
		}
		if err := (&GlobalConfig{}).ReadConfig(fname); err == nil {
			t.Errorf("%d) Expected an error for %q.", i, tests[i])
		}
	}
}

func TestModeConfigErrors(t *testing.T) {
	tests := []struct {
		mode Mode
		text string
	}{
		{&DownsampleConfig{}, "[downsample.config]\nTypes = 0, 3"},
		{&DownsampleConfig{}, "[downsample.config]\nKeepAll = -1"},
		{&ICConfig{}, "[ic.config]\nTypes = 6"},
		{&ICConfig{}, "[ic.config]\nReplicate = many"},
		{&VirtualConfig{noConfig{"virtual"}}, "[virtual.config]"},
	}

	dir := t.TempDir()
	for i := range tests {
		fname := filepath.Join(dir, "bad.config")
		if err := os.WriteFile(fname, []byte(tests[i].text), 0644); err != nil {
			t.Fatal(err)
		}
		if err := tests[i].mode.ReadConfig(fname); err == nil {
			t.Errorf("%d) Expected an error for %q.", i, tests[i].text)
		}
	}
}
