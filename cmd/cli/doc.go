// Package cli constructs the git-autocommit command-line interface. It wires
// the Cobra root command to the layered configuration loader, the tee'd
// console and file logger, the run lock, and the auto-commit service.
package cli
