package main

import "os"

import "github.com/neurlang/acoustic/config"
import "github.com/neurlang/acoustic/device"
import "github.com/neurlang/acoustic/trainer"
import "github.com/sirupsen/logrus"
import "github.com/spf13/cobra"

func main() {
	if err := newCommand().Execute(); err != nil {
		logrus.WithError(err).Error("train_sequence failed")
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	defaults := config.Sequence()
	v, err := config.NewViper(defaults, "")
	if err != nil {
		panic(err.Error())
	}
	var file string
	var pgo bool

	cmd := &cobra.Command{
		Use:           "train_sequence",
		Short:         "train a segment classifier on log-mel sequences",
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

			s := &trainer.Sequence{Config: cfg, Device: dev, Log: run}
			res, err := s.Run()
			if err != nil {
				return err
			}
			run.WithFields(logrus.Fields{
				"best":       res.Best.Accuracy,
				"best_epoch": res.Best.Epoch,
				"last":       res.Last.Accuracy,
				"train_acc":  res.TrainAccuracy,
				"skipped":    len(res.Skipped),
			}).Info("done")
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
