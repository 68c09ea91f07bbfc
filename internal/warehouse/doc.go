// Package warehouse publishes the merged dataset to PostgreSQL for
// analytical queries. Each publish replaces the table contents with
// the current dataset inside one transaction, so queries never see a
// partially loaded table.
package warehouse
