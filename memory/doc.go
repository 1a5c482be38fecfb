// Package memory implements long-term memory: facts embedded into a vector
// store, persisted to a CSV file and recalled by similarity weighted with
// recency and importance.
//
// The CSVStorage is the only reader and writer of the memory file. Records
// are loaded once when the Service starts and appended as they are added.
package memory
