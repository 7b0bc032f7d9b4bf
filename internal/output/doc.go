// Package output renders audit reports for the terminal. Three formatters
// share one interface: a compact table for humans, JSON and YAML for
// scripts. Color is applied only when writing to a TTY and can be forced off.
package output
