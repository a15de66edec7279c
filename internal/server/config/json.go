package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/akarpov87/storysync/internal/flagx"
	"github.com/akarpov87/storysync/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON config
// files. Duration fields accept both strings ("5m") and integer nanoseconds.
type JsonConfig struct {
	EndpointAddr string         `json:"endpoint_addr"`
	DatabaseDSN  string         `json:"database_dsn"`
	LocalDSN     string         `json:"local_dsn"`
	SettingsTTL  timex.Duration `json:"settings_ttl"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, if present. The file must be readable and valid JSON;
// anything else panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.LocalDSN != "" {
		config.LocalDSN = c.LocalDSN
	}
	if c.SettingsTTL.Duration != 0 {
		config.SettingsTTL = time.Duration(c.SettingsTTL.Duration)
	}
}
