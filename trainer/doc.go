// Package trainer provides high-level training orchestration for the acoustic
// classifiers: the optimisation step over a batch of crops, the per-fold
// waveform driver with its optional fused second phase, and the single split
// log-mel sequence driver.
package trainer
