// Package config loads runtime configuration for the gophstamp CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-t int      request timeout (seconds)
//	-i int      online status check interval (seconds)
//	-d string   local database file
//	-o string   download directory
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "15s",
//	  "online_check_interval": "5s",
//	  "database_path": "gophstamp.db",
//	  "download_dir": "download"
//	}
//
// Environment variables are not consulted.
package config
