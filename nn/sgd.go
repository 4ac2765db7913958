package nn

import (
	"github.com/born-ml/born/autodiff"
	born "github.com/born-ml/born/nn"
	"github.com/born-ml/born/optim"
	"github.com/pkg/errors"
)

// SGD is stochastic gradient descent with momentum and L2 weight decay over
// the non frozen parameters. LR may be changed between steps.
type SGD struct {
	LR          float64
	Momentum    float64
	WeightDecay float64

	params []*Param
	b      Backend
	loss   *born.CrossEntropyLoss[Backend]
	opt    *optim.SGD[Backend]
	built  float64 // LR of opt
}

// NewSGD creates an optimizer over the non frozen params.
func NewSGD(params []*Param, lr, momentum, weightDecay float64) *SGD {
	o := &SGD{LR: lr, Momentum: momentum, WeightDecay: weightDecay}
	for _, p := range params {
		if !p.Frozen {
			o.params = append(o.params, p)
		}
	}
	if len(o.params) > 0 {
		o.b = o.params[0].b
		o.loss = born.NewCrossEntropyLoss(o.b)
	}
	return o
}

// Params are the parameters updated by Step.
func (o *SGD) Params() []*Param {
	return o.params
}

// optimizer returns the born optimizer for the current LR. A new rate
// starts a new optimizer, so momentum restarts at each schedule change.
func (o *SGD) optimizer() *optim.SGD[Backend] {
	if o.opt != nil && o.built == o.LR {
		return o.opt
	}
	params := make([]*born.Parameter[Backend], len(o.params))
	for i, p := range o.params {
		params[i] = p.p
	}
	o.opt = optim.NewSGD(params, optim.SGDConfig{
		LR:       float32(o.LR),
		Momentum: float32(o.Momentum),
	}, o.b)
	o.built = o.LR
	return o.opt
}

// Step takes the mean cross entropy of logits against labels, propagates it
// back and updates the parameters. It returns the loss and the number of
// rows whose arg-max is the label.
func (o *SGD) Step(logits Tensor, labels []int) (float64, int, error) {
	var correct int
	for i, row := range Rows(logits) {
		if ArgMax(row) == labels[i] {
			correct++
		}
	}
	if o.b == nil {
		return 0, correct, errors.New("sgd: no trainable parameters")
	}
	targets, err := labelTensor(o.b, labels)
	if err != nil {
		return 0, correct, errors.Wrap(err, "sgd: labels")
	}
	loss := o.loss.Forward(logits, targets)
	value := float64(loss.Data()[0])

	grads := autodiff.Backward(loss, o.b)
	if o.WeightDecay != 0 {
		wd := float32(o.WeightDecay)
		for _, p := range o.params {
			g, ok := grads[p.raw()]
			if !ok {
				continue
			}
			gd, pd := g.AsFloat32(), p.p.Tensor().Data()
			for i := range gd {
				gd[i] += wd * pd[i]
			}
		}
	}
	o.optimizer().Step(grads)
	return value, correct, nil
}
