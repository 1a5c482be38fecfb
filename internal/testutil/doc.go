// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing envelopes and conversations or when
// a code session needs an interpreter. Not intended for production usage.
package testutil
