package configs

import "embed"

// DefaultScripts contains the example scripts seeded into an empty script
// library.
//
//go:embed scripts/*
var DefaultScripts embed.FS
