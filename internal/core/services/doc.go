// Package services holds the retrieval pipeline: index building, hybrid
// retrieval, confidence scoring and gated answering, plus settings and
// evaluation. Services depend only on ports; cmd/medrag supplies adapters.
package services
