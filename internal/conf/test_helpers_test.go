package conf

import (
	"testing"

	"github.com/spf13/viper"
)

// resetConfigState clears viper and package globals so each test loads from scratch.
func resetConfigState(t *testing.T) {
	t.Helper()

	reset := func() {
		viper.Reset()
		settingsMutex.Lock()
		settingsInstance = nil
		configFileOverride = ""
		settingsMutex.Unlock()
	}

	reset()
	t.Cleanup(reset)
}

// validSettings returns settings that pass ValidateSettings, built from the defaults.
func validSettings(t *testing.T) *Settings {
	t.Helper()
	resetConfigState(t)

	setDefaultConfig()
	s := &Settings{}
	if err := viper.Unmarshal(s); err != nil {
		t.Fatalf("unmarshal defaults: %v", err)
	}
	return s
}
