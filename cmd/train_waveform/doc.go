// Package main provides the cross-validated waveform training program. Each
// fold trains a classifier on random 1.5 second crops, scores it every few
// epochs with the sliding window evaluation and keeps the best checkpoint.
// Fusion architectures can continue with a second phase that adds log-mel
// features to the frozen waveform branch.
package main
