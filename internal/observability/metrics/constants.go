// Package metrics provides constants used across metric definitions.
package metrics

// Operation names passed to a Recorder.
const (
	// OpDetect is one object detector call.
	OpDetect = "detect"
	// OpModelLoad is loading the detector model.
	OpModelLoad = "model_load"
	// OpDecode is decoding an uploaded image.
	OpDecode = "decode"
	// OpAnalyze is one glare analysis.
	OpAnalyze = "analyze"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart1KB is the starting bucket for 1KB histograms.
	BucketStart1KB = 1024.0
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0
	// BucketCompositeWidth is the width of each composite score bucket.
	BucketCompositeWidth = 0.05
	// BucketCompositeCount covers composite scores up to 1.0.
	BucketCompositeCount = 20

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)
