// Package file provides a TOML-backed implementation of the config
// store port with hot reload.
//
// The engine config lives in a single config.toml. A filesystem watcher
// reloads the file when it changes and notifies subscribers, so router
// thresholds and fusion weights can be tuned without a restart. A
// malformed or invalid edit keeps the previous configuration in effect.
package file
