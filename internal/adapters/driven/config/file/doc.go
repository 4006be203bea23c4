// Package file keeps medrag's user-editable state under the config
// directory: config.toml and the prompts/ templates.
package file
