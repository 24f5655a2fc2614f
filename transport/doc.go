// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package transport opens stream sockets with the configured socket options.
// Accepted and dialed connections are plain net.Conn values; the engine reads
// them through the Go netpoller.
package transport
