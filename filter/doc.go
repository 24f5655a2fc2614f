// File: filter/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package filter provides the ordered filter chain shared by every session of
// a listener or connector, a no-op Base to embed, and built-in filters for
// logging, counters and address allow-listing.
package filter
