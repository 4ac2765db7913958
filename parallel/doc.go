// Package parallel contains a bounded parallel ForEach() plus the hasher that
// digests per-recording predictions in index order.
package parallel
