package util

import (
	"fmt"
)

// MinMax scans a float32 vector and returns its minimum and maximum. The scan
// is a plain accumulating loop so it stays bounded on arbitrarily large
// buffers.
func MinMax(vector []float32) (float32, float32, error) {
	if len(vector) == 0 {
		return 0, 0, fmt.Errorf("attempted to scan an empty vector")
	}
	minValue := vector[0]
	maxValue := vector[0]
	for _, v := range vector[1:] {
		if v < minValue {
			minValue = v
		}
		if v > maxValue {
			maxValue = v
		}
	}
	return minValue, maxValue, nil
}

// Mean of a float32 vector.
func Mean(vector []float32) float32 {
	sum := float32(0.0)
	for _, v := range vector {
		sum = sum + v
	}
	return sum / float32(len(vector))
}
