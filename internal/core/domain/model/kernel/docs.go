// Package kernel provides the shared value objects of the fulfillment domain:
// UUID identifiers and Money amounts. Both are immutable and validate on
// construction, so an aggregate holding them never sees a half-built value.
package kernel
