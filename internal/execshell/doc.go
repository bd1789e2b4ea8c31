// Package execshell runs git as an external process with captured output.
//
// ShellExecutor classifies exit codes into typed errors and logs every
// invocation through zap, while OSCommandRunner supplies the os/exec backed
// process runner that tests replace with recording stubs.
package execshell
