// Package config provides configuration loading, merging, and validation
// facilities for the application.
//
// Configuration is assembled from multiple sources in the following priority
// order (the first source to set a field wins):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON config file (path resolved from the sources above)
//
// The main entry points are [GetStructuredConfig] for server/runtime
// configuration and [GetClientConfig] for the sync client configuration.
package config
