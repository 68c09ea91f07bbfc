// Package database provides the PostgreSQL connection pool backing
// the optional warehouse publisher.
package database
