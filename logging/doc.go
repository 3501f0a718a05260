// Package logging defines the Logger interface consumed by every Convergio
// component plus ready-made adapters for slog and zerolog. Construct a
// ConvergioLogger for structured JSON/text output with conversation and
// component scoping, or pass any implementation of the four-method Logger
// interface. A nil logger is always substituted with NoOpLogger.
package logging
