// package library resolves discovery candidates against the local media
// library in batches, using normalized and fuzzy name comparison.
package library
