// Package api exposes the indexing engine over a JSON HTTP API.
//
// Every data route is owner-scoped: the caller's identity arrives in the
// X-User-ID header, set by the authenticating proxy in front of this
// service. Requests without it are rejected before any handler runs.
package api
