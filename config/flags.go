package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// usage strings of the flags registered by BindFlags, keyed by config key.
var usage = map[string]string{
	"batch_size":           "input batch size for training",
	"test_batch_size":      "windows per forward pass during evaluation (0: whole clip)",
	"epochs":               "number of epochs to train",
	"lr":                   "learning rate",
	"momentum":             "SGD momentum",
	"weight_decay":         "weight decay",
	"gamma":                "learning rate decay factor at each milestone",
	"milestones":           "epochs at which the learning rate decays",
	"device":               "compute device: cpu, avx512 or cuda",
	"workers":              "feature extraction goroutines (0: one per cpu)",
	"seed":                 "random seed",
	"arch":                 "architecture name",
	"num_classes":          "number of output classes",
	"hidden":               "hidden units of mlp architectures",
	"eval_interval":        "how many epochs to wait before evaluating and saving the model",
	"train_slices":         "random crops drawn from each recording per epoch",
	"test_stride":          "window stride in seconds during evaluation",
	"sample_rate":          "recording sample rate",
	"folds":                "cross-validation folds to run",
	"data_dir":             "directory holding the fold list files",
	"model_dir":            "directory receiving checkpoints",
	"phase2_epochs":        "epochs of the fused second phase (0: skip)",
	"phase2_eval_interval": "evaluation interval of the second phase",
	"num_slices":           "segments per recording in sequence mode",
	"seq_bands":            "log-mel bands of a segment in sequence mode",
	"save_interval":        "how many epochs to wait before snapshotting the model",
	"seq_train":            "training segment list in sequence mode",
	"seq_test":             "test segment list in sequence mode",
	"resume":               "checkpoint to resume from ({fold} is substituted)",
	"log_level":            "logrus level",
	"progress":             "render progress bars",
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Explicit reports whether key was given on the command line, in the
// environment or in the config file rather than left at its default.
func Explicit(fs *pflag.FlagSet, v *viper.Viper, key string) bool {
	if f := fs.Lookup(flagName(key)); f != nil && f.Changed {
		return true
	}
	if _, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(key)); ok {
		return true
	}
	return v.InConfig(key)
}

// BindFlags registers one flag per known config key, with defaults taken from
// defaults, and binds each to v so that an explicitly set flag wins over
// environment and file values.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper, defaults map[string]interface{}) error {
	for key, help := range usage {
		name := flagName(key)
		switch d := defaults[key].(type) {
		case int:
			fs.Int(name, d, help)
		case int64:
			fs.Int64(name, d, help)
		case float64:
			fs.Float64(name, d, help)
		case string:
			fs.String(name, d, help)
		case bool:
			fs.Bool(name, d, help)
		case []int:
			fs.IntSlice(name, d, help)
		default:
			return errors.Errorf("config: no flag type for %s (%T)", key, d)
		}
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return errors.Wrapf(err, "bind flag %s", name)
		}
	}
	return nil
}
