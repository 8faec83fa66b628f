package config

import "testing"

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	if err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	f, err = ParseFormat("arrow")
	if err != nil || f != FormatArrow {
		t.Errorf("ParseFormat(arrow) = %v, %v", f, err)
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("ParseFormat accepted csv")
	}
}

func TestRunConfigValidate(t *testing.T) {
	cfg := DefaultRun()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default run config rejected: %v", err)
	}

	cfg = DefaultRun()
	cfg.Trials = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero trials accepted")
	}

	cfg = DefaultRun()
	cfg.OutputPath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty output path accepted")
	}

	cfg = DefaultRun()
	cfg.Sampling.TopK = 0
	if err := cfg.Validate(); err == nil {
		t.Error("invalid sampling config accepted")
	}
}

func TestServeConfigValidate(t *testing.T) {
	cfg := DefaultServe()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default serve config rejected: %v", err)
	}
	cfg.ListenAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty listen address accepted")
	}
}
