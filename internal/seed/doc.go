// Package seed loads a CSV file into a PostgreSQL table, inferring column types
// from the data and replacing any existing table of the same name.
package seed
