package avsync

import "talkvid/internal/avgraph"

// DefaultFadeIn is the fade applied to a delayed recording when no engine
// configuration supplies one.
const DefaultFadeIn = 0.5

// PadFront delays obj by delay seconds, fading it in over fadeIn seconds
// once it starts. A non-positive delay returns obj unchanged.
func PadFront(obj *avgraph.Object, delay, fadeIn float64) (*avgraph.Object, error) {
	if delay <= 0 {
		return obj, nil
	}
	faded, err := obj.FadedIn(fadeIn)
	if err != nil {
		return nil, err
	}
	return faded.Delayed(delay)
}

// Shifted applies a known offset between a and b with the sign convention
// of Result.Offset: positive delays a, negative delays b.
func Shifted(a, b *avgraph.Object, offset, fadeIn float64) (*avgraph.Object, *avgraph.Object, error) {
	padA, err := PadFront(a, offset, fadeIn)
	if err != nil {
		return nil, nil, err
	}
	padB, err := PadFront(b, -offset, fadeIn)
	if err != nil {
		return nil, nil, err
	}
	return padA, padB, nil
}
