// Package config loads runtime configuration for the MindWell CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Environment variables with the MINDWELL_ prefix, after loading a
//     dotenv file (-env, or ./.env when present).
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations accept strings like "2s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "user_id": 7,
//	  "poll_interval": "2s",
//	  "history_db": "mindwell.db"
//	}
package config
