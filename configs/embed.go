// Package configs provides files embedded in the corpusctl binary.
//
// Templates and defaults are embedded at build time so they are available
// in every distribution:
//   - user-config.example.yaml: written by `corpusctl config init`
//   - settings/*.conf.json: index settings and mappings used by
//     `corpusctl update-conf` when engine.config_dir is not set
//
// To modify them, edit the files in this directory and rebuild.
package configs

import "embed"

// UserConfigTemplate is the template for the user configuration.
// Created by: `corpusctl config init` at ~/.config/corpusctl/config.yaml
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// Settings holds the default index settings: settings/_global.conf.json
// and one settings/<index>.conf.json per index.
//
//go:embed settings/*.json
var Settings embed.FS

// SettingsDir is the directory of Settings holding the settings files.
const SettingsDir = "settings"
