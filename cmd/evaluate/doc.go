// Package main scores a stored checkpoint on a list of recordings and prints
// the accuracy, the mean loss and the prediction digest.
package main
