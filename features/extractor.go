package features

// Extractor computes the auxiliary features of one window, going through the
// cache when one is configured.
type Extractor struct {
	Mel   *LogMel
	Cache *Cache
}

// Window returns the features of the window of key starting at offset.
func (e *Extractor) Window(key string, offset int, samples []float64) []float64 {
	if feat, ok := e.Cache.Get(key, offset); ok {
		return feat
	}
	feat := Quantize(e.Mel.Compute(samples))
	e.Cache.Add(key, offset, feat)
	return feat
}
