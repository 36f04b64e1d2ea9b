// Package postgres implements the store interfaces against PostgreSQL:
// SQL for classification records, pg error-code mapping to the store's
// sentinel errors, and the startup pass that fails records interrupted
// by a previous process.
package postgres
