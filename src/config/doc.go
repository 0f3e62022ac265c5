// Package config defines the configuration of a Streamlet simulation.
//
// Regardless of how the protocol is started, directly from Go code or from the
// command line, it uses the Config object defined in this package to store and
// forward configuration options. The command line reads an optional
// streamlet.toml (or .yaml, .json) from Config.DataDir, and flags override
// what the file sets.
//
// Validate checks a Config before any node is built and reports every problem
// it finds at once. Configuring more Byzantine nodes than the network
// tolerates is not an error: the run still happens, but the consistency of
// the honest nodes is no longer guaranteed, and Validate logs a warning.
package config
