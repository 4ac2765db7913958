package main

import "os"

import "github.com/neurlang/acoustic/config"
import "github.com/neurlang/acoustic/device"
import "github.com/neurlang/acoustic/trainer"
import "github.com/sirupsen/logrus"
import "github.com/spf13/cobra"

func main() {
	if err := newCommand().Execute(); err != nil {
		logrus.WithError(err).Error("train_waveform failed")
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
	var pgo bool

	cmd := &cobra.Command{
		Use:           "train_waveform",
		Short:         "train a waveform classifier on every cross-validation fold",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pgo {
				stop, err := startProfile("default.pgo")
				if err != nil {
					return err
				}
				defer stop()
			}
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
			id, err := cfg.Snapshot(cfg.ModelDir)
			if err != nil {
				return err
			}
			run := log.WithField("run", id)
			run.WithFields(logrus.Fields{"arch": cfg.Arch, "device": dev.Name, "compute": dev.Describe()}).Info("start")

			w := &trainer.Waveform{Config: cfg, Device: dev, Log: run}
			results, err := w.Run()
			if err != nil {
				return err
			}
			var sum float64
			for _, r := range results {
				best := r.Phase1.Accuracy
				if r.Phase2.Accuracy > best {
					best = r.Phase2.Accuracy
				}
				sum += best
				run.WithFields(logrus.Fields{
					"fold":     r.Fold,
					"p1":       r.Phase1.Accuracy,
					"p1_epoch": r.Phase1.Epoch,
					"p2":       r.Phase2.Accuracy,
					"p2_epoch": r.Phase2.Epoch,
				}).Info("fold best")
			}
			if len(results) > 0 {
				run.WithField("acc", sum/float64(len(results))).Info("mean over folds")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "config", "", "yaml config file")
	cmd.Flags().BoolVar(&pgo, "pgo", false, "collect a cpu profile into default.pgo")
	if err := config.BindFlags(cmd.Flags(), v, defaults); err != nil {
		panic(err.Error())
	}
	return cmd
}
