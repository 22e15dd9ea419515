// Package config provides centralized configuration for the setup,
// preprocess and dashboard binaries.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), including .env.local and .env
//	2. A YAML file: config.yaml, configs/config.yaml or an explicit path
//	3. Default values from the struct tags (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern COOLING_<SECTION>_<FIELD>:
//
//	COOLING_SERVER_PORT=8050
//	COOLING_SETUP_VARIANT=cloud
//	COOLING_SETUP_MANIFEST=deps.yaml
//	COOLING_PATHS_INPUT_DIR=test_app_data
//	COOLING_STORAGE_ENABLED=true
//	COOLING_CACHE_BACKEND=redis
//
// # Paths
//
// Relative paths are resolved against Paths.WorkDir (the working directory
// by default) through Config.ResolvePaths.
package config
