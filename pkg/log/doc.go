/*
Package log provides BRindeX's structured logging, a thin wrapper around
zerolog: a global Logger initialized once via Init, and WithComponent /
WithVolume / WithRunID helpers for child loggers that tag every line with
the subsystem, drive letter, or orchestration run that produced it.

JSON output is used in production; console (human-readable) output is the
default for local runs. Level and format are both set via Config.
*/
package log
