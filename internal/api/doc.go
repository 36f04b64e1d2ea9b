// Package api contains the HTTP handlers for classification requests
// and queue operations, the mapping from internal errors to status
// codes, and the client-safe error messages. Routing lives in
// cmd/server; the handlers here only see decoded, validated requests.
package api
