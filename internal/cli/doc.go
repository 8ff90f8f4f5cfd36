// Package cli turns command-line arguments and an optional YAML file into a
// validated app.Config. Usage errors come back as *ExitError so main can
// pick the process exit code.
package cli
