package main

import "fmt"
import "os"

import "github.com/neurlang/acoustic/checkpoint"
import "github.com/neurlang/acoustic/config"
import "github.com/neurlang/acoustic/datasets"
import "github.com/neurlang/acoustic/device"
import "github.com/neurlang/acoustic/evaluate"
import "github.com/neurlang/acoustic/features"
import "github.com/sirupsen/logrus"
import "github.com/spf13/cobra"

func main() {
	if err := newCommand().Execute(); err != nil {
		logrus.WithError(err).Error("evaluate failed")
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	defaults := config.Waveform()
	v, err := config.NewViper(defaults, "")
	if err != nil {
		panic(err.Error())
	}
	var file string
	var segments bool

	cmd := &cobra.Command{
		Use:           "evaluate CHECKPOINT LIST",
		Short:         "score a checkpoint on the recordings of a list file",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadFile(v, file); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			log := cfg.NewLogger()
			dev, err := device.Open(cfg.Device, cfg.Workers)
			if err != nil {
				return err
			}

			m, snap, err := checkpoint.Load(args[0])
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"arch":    snap.Arch,
				"phase":   snap.Phase,
				"device":  dev.Name,
				"compute": dev.Describe(),
			}).Info("loaded")

			var stats evaluate.Stats
			if segments {
				bands, err := snap.SegmentBands(cfg.SeqBands, config.Explicit(cmd.Flags(), v, "seq_bands"))
				if err != nil {
					return err
				}
				mel := features.NewLogMel(cfg.SampleRate)
				mel.Mels = bands
				examples, skipped, err := datasets.LoadSegments(args[1], cfg.SampleRate, mel, cfg.NumSlices)
				if err != nil {
					return err
				}
				for _, key := range skipped {
					log.WithField("key", key).Warn("recording shorter than its segments, skipping")
				}
				stats, err = evaluate.EvaluateGrouped(m, examples, cfg.NumSlices, log)
				if err != nil {
					return err
				}
			} else {
				recs, err := datasets.Load(args[1], cfg.SampleRate)
				if err != nil {
					return err
				}
				cache, err := features.NewCache(cfg.FeatureCache)
				if err != nil {
					return err
				}
				stats, err = evaluate.Evaluate(m, recs, evaluate.Options{
					WindowSize: cfg.WindowSize(),
					Stride:     cfg.Stride(),
					Threshold:  cfg.SilenceThreshold,
					MaxBatch:   cfg.TestBatchSize,
					Extractor:  &features.Extractor{Mel: features.NewLogMel(cfg.SampleRate), Cache: cache},
					Workers:    dev.Workers,
					Logger:     log,
				})
				if err != nil {
					return err
				}
			}

			fmt.Printf("Test set: Average loss: %.4f, Accuracy: %d/%d (%.2f%%)\n",
				stats.MeanLoss, stats.Correct, stats.Used, stats.Accuracy)
			if len(stats.Skipped) > 0 {
				fmt.Printf("skipped %d of %d: %v\n", len(stats.Skipped), stats.Total, stats.Skipped)
			}
			fmt.Printf("%x\n", stats.Digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "config", "", "yaml config file")
	cmd.Flags().BoolVar(&segments, "segments", false, "score groups of log-mel segments instead of sliding windows")
	if err := config.BindFlags(cmd.Flags(), v, defaults); err != nil {
		panic(err.Error())
	}
	return cmd
}
