// Package poller implements the snapshot poller.
//
// The poller:
//   - Fetches every configured market on a fixed interval (default 15 minutes)
//   - Bounds concurrent provider requests
//   - Hands each fetched snapshot to a handler (the archive, when enabled)
//   - Logs and counts failures without retrying; the next cycle tries again
package poller
