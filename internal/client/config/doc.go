// Package config loads runtime configuration for the field client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the document store gRPC endpoint
//	-i int      online status check interval (seconds)
//	-f string   path of the local SQLite database
//	-l string   log file (rotated); stderr when empty
//	-w string   listen address of the websocket change feed; off when empty
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "database_path": "fieldsync.db",
//	  "log_file": "fieldsync.log",
//	  "notify_addr": "127.0.0.1:8081"
//	}
package config
