// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging and debug introspection for hioload-aio.
//
//   - Config is loaded from TOML on top of DefaultConfig and validated once.
//   - NewLogger builds the zerolog logger every component receives.
//   - DebugProbes collects named state dumps from running components.
package control
