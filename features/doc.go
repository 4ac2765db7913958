// Package features computes fixed-size log-magnitude mel spectrograms of
// analysis windows and memoises them per recording offset.
package features
