package study

import "math/rand/v2"

type sizeRange struct {
	base, span int64
}

var modalitySizes = map[string]sizeRange{
	"CT":   {base: 50_000_000, span: 100_000_000},
	"MRI":  {base: 100_000_000, span: 200_000_000},
	"XRAY": {base: 10_000_000, span: 40_000_000},
	"US":   {base: 20_000_000, span: 30_000_000},
	"PET":  {base: 80_000_000, span: 120_000_000},
}

var defaultSize = sizeRange{base: 50_000_000, span: 50_000_000}

// SynthesizeSize returns a plausible file size for a study of the given
// modality, drawn from [base, base+span). The result is metadata only; it
// is not a measured size. Pass a seeded rng for reproducible output.
func SynthesizeSize(modality string, rng *rand.Rand) int64 {
	r, ok := modalitySizes[modality]
	if !ok {
		r = defaultSize
	}
	return r.base + rng.Int64N(r.span)
}

// SizeRange reports the half-open interval SynthesizeSize draws from for
// modality.
func SizeRange(modality string) (lo, hi int64) {
	r, ok := modalitySizes[modality]
	if !ok {
		r = defaultSize
	}
	return r.base, r.base + r.span
}
