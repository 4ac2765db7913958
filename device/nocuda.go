//go:build !cuda

package device

import "github.com/pkg/errors"

func cudaDevices() (int, error) {
	return 0, errors.New("built without cuda tag")
}
