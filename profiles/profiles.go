// Package profiles holds the fixed set of normalization profiles a pipeline
// can run under. The set is closed: profiles are defined here, validated at
// package initialization, and never mutated afterwards.
package profiles

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
)

// ConfigError is returned when a profile name is not part of the known set.
type ConfigError struct {
	Name string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unknown normalization profile %q", e.Name)
}

// Profile bundles target canvas dimensions with the per-channel constants
// applied when mapping pixel bytes into model space. Mean and Std describe
// values already rescaled to [0,1].
type Profile struct {
	Name     string
	Width    int
	Height   int
	Channels int
	Mean     [3]float64
	Std      [3]float64
}

// The standard imagenet and CLIP constants, plus identity profiles for models
// trained on plain [0,1] inputs and a symmetric profile for [-1,1] models.
var registry = map[string]*Profile{
	"imagenet-224": {
		Name:     "imagenet-224",
		Width:    224,
		Height:   224,
		Channels: 3,
		Mean:     [3]float64{0.485, 0.456, 0.406},
		Std:      [3]float64{0.229, 0.224, 0.225},
	},
	"clip-224": {
		Name:     "clip-224",
		Width:    224,
		Height:   224,
		Channels: 3,
		Mean:     [3]float64{0.48145466, 0.4578275, 0.40821073},
		Std:      [3]float64{0.26862954, 0.26130258, 0.27577711},
	},
	"zero-one-224": {
		Name:     "zero-one-224",
		Width:    224,
		Height:   224,
		Channels: 3,
		Mean:     [3]float64{0, 0, 0},
		Std:      [3]float64{1, 1, 1},
	},
	"zero-one-512": {
		Name:     "zero-one-512",
		Width:    512,
		Height:   512,
		Channels: 3,
		Mean:     [3]float64{0, 0, 0},
		Std:      [3]float64{1, 1, 1},
	},
	"symmetric-512": {
		Name:     "symmetric-512",
		Width:    512,
		Height:   512,
		Channels: 3,
		Mean:     [3]float64{0.5, 0.5, 0.5},
		Std:      [3]float64{0.5, 0.5, 0.5},
	},
}

func init() {
	for name, profile := range registry {
		if err := validate(profile); err != nil {
			panic(fmt.Sprintf("invalid built-in profile %s: %v", name, err))
		}
	}
}

func validate(p *Profile) error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("dimensions %dx%d must be positive", p.Width, p.Height)
	}
	if p.Channels != len(p.Mean) || p.Channels != len(p.Std) {
		return fmt.Errorf("channels %d must match mean/std length %d/%d", p.Channels, len(p.Mean), len(p.Std))
	}
	for i, s := range p.Std {
		if s == 0 {
			return fmt.Errorf("std[%d] must be non-zero", i)
		}
	}
	return nil
}

// Get returns the profile registered under name. Selecting an unknown name is
// a configuration error, never a silent default.
func Get(name string) (*Profile, error) {
	profile, ok := registry[name]
	if !ok {
		return nil, &ConfigError{Name: name}
	}
	return profile, nil
}

// Names lists the known profile names in sorted order.
func Names() []string {
	names := maps.Keys(registry)
	sort.Strings(names)
	return names
}
