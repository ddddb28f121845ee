// Package watch re-runs a callback when files under a directory change.
//
// A [Watcher] registers every directory below its root with fsnotify,
// following directories that are created later on. Events are filtered and
// collected until the tree has been quiet for the debounce interval; the
// callback then receives the changed paths in one batch. Editors commonly
// write a file several times per save, so a batch holds each path once.
package watch
