// Package config loads parking levels from a directory.
//
// Levels are stored as .json or .hcl files. Both formats describe the same
// fields: a name, the slot vacancy, an optional visible queue size, the
// square initial matrix and the passenger source. Matrix cells are either 0
// for an empty cell or a [color, capacity] pair.
//
//	level "starter" {
//	  vacancy        = 3
//	  initial_matrix = [[[1, 2], 0], [0, [2, 2]]]
//	  item_queue     = [1, 1, 2, 0, 2]
//	}
//
// Manager implements service.LevelManager. Levels are validated on load and
// cached by ID, the file name without extension. The default level is
// "starter" when present, then the first level found, then the built-in
// engine.DefaultLevel. SaveLevel always writes JSON.
package config
