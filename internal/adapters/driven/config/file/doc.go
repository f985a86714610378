// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//
// Keys use dot notation ("match.dimensions"); nested TOML sections in
// the file flatten to the same notation on load.
package file
