// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency holds the worker executor that runs deferred read
// pipelines, backed by a bounded MPMC ring with an unbounded overflow queue.
package concurrency
