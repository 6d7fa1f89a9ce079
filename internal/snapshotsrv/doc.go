// Package snapshotsrv is the HTTP endpoint behind the remote snapshot
// medium.
//
// It accepts uploaded snapshot images on POST /api/save-database (multipart
// field "database"), publishes them atomically into a public directory and
// serves the latest one back on GET /<snapshot file>. It also exposes
// /healthz and the Prometheus /metrics endpoint.
//
// The server stores bytes as given. It does not open or validate the
// image; the repository that loads it does that.
package snapshotsrv
