package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept both "24h" style strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	StorageBackend              string         `json:"storage_backend"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
}

// parseJson overlays values from the file named by -c/-config. Keys absent
// from the file keep their current value. Unreadable or invalid files panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	flagx.SetString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	flagx.SetString(&config.StorageBackend, c.StorageBackend)
	flagx.SetString(&config.DatabaseDSN, c.DatabaseDSN)
	flagx.SetString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	flagx.SetString(&config.S3RootUser, c.S3RootUser)
	flagx.SetString(&config.S3RootPassword, c.S3RootPassword)
	flagx.SetString(&config.S3Bucket, c.S3Bucket)
	flagx.SetString(&config.S3Region, c.S3Region)
	flagx.SetString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}
