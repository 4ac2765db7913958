package trainer

import "github.com/neurlang/acoustic/checkpoint"
import "github.com/neurlang/acoustic/model"
import "github.com/sirupsen/logrus"

// Resume restores m from the checkpoint at name when name is set.
func Resume(m model.Trainable, name string, log logrus.FieldLogger) error {
	if name == "" {
		return nil
	}
	if err := checkpoint.Resume(m, name); err != nil {
		return err
	}
	log.WithField("checkpoint", name).Info("resumed")
	return nil
}
