// Package logging sets up structured slog logging for corpusctl.
// Logs are JSON lines written to a size-rotated file under
// ~/.corpusctl/logs/, and also to stderr when --debug is set.
package logging
