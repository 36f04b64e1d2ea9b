// Package store declares the persistence boundary: the classification
// store interface, the DBTX query surface, the sentinel error
// hierarchy, and the transaction helper. Concrete implementations live
// under internal/platform.
package store
