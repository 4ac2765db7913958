package parallel

import "sync"

// ForEach executes a for loop with a limited number of concurrent goroutines.
// Each goroutine processes one integer, from 0 to length. The error of the
// lowest failing index is returned once all iterations have finished.
func ForEach(length, limit int, body func(i int) error) error {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return nil
	}
	if limit > length {
		limit = length
	}

	errs := make([]error, length)
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			errs[i] = body(i)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
