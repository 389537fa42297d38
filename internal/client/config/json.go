package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals
// may be strings like "3s" or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	DatabasePath        string         `json:"database_path"`
	LogFile             string         `json:"log_file"`
	NotifyAddr          string         `json:"notify_addr"`
}

// parseJson overlays values from the file named by -c/-config. Keys absent
// from the file keep their current value. Unreadable or invalid files panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	flagx.SetString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	flagx.SetString(&cfg.DatabasePath, jc.DatabasePath)
	flagx.SetString(&cfg.LogFile, jc.LogFile)
	flagx.SetString(&cfg.NotifyAddr, jc.NotifyAddr)
}
