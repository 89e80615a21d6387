package silencegate

import (
	"encoding/binary"
	"math"
)

// pcm encodes samples as little-endian float32.
func pcm(samples ...float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*BytesPerSample:], math.Float32bits(s))
	}
	return out
}

// constantPCM returns n samples of the same value.
func constantPCM(value float32, n int) []byte {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = value
	}
	return pcm(samples...)
}

// sinePCM returns n samples of a 440 Hz tone at the given amplitude.
func sinePCM(amplitude float64, n, sampleRate int) []byte {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	return pcm(samples...)
}
