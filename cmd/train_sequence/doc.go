// Package main provides the log-mel sequence training program. Recordings are
// cut into a fixed number of segments; test clips are classified by summing
// the scores of their segments.
package main
