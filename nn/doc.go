// Package nn binds the born tensor library to the trainer: dense layers and
// ReLU on the autodiff cpu backend, the batch cross entropy criterion, SGD
// with momentum and weight decay, and the staged learning rate schedules.
// Clip level decisions stay in float64 and use LogSumExp and ArgMax.
package nn
