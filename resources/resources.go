// Package resources embeds the scripts shipped with browserkit.
package resources

import "embed"

// ScriptDir is the directory of ScriptFiles holding the scripts.
const ScriptDir = "scripts"

//go:embed scripts/*.yaml
var ScriptFiles embed.FS
