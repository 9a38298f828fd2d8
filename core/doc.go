// Package core resolves, pages, uploads and approves OPC UA nodesets against
// a remote CloudLib registry. The registry itself is consumed through the
// RemoteRegistry contract; wire formats live in adapter packages.
package core
