// Package normalisers provides implementations of the Normaliser interface.
// A normaliser turns a raw corpus file into a domain.Document whose Content
// is plain text with heading lines preserved for section-aware chunking.
package normalisers
