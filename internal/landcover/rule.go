package landcover

import (
	"encoding/json"
	"fmt"
)

// RGB is a display colour. It carries no meaning for detection.
type RGB [3]uint8

// MarshalJSON keeps the colour a 3-integer array instead of a base64 string.
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{int(c[0]), int(c[1]), int(c[2])})
}

func (c *RGB) UnmarshalJSON(data []byte) error {
	var v [3]int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	for i, x := range v {
		if x < 0 || x > 255 {
			return fmt.Errorf("color component %d out of range: %d", i, x)
		}
		c[i] = uint8(x)
	}
	return nil
}

// TransitionRule marks a pixel as changed when its before class is in From
// and its after class is in To.
type TransitionRule struct {
	Key   string      `yaml:"key" json:"key"`
	Name  string      `yaml:"name" json:"name"`
	From  []ClassCode `yaml:"from" json:"from"`
	To    []ClassCode `yaml:"to" json:"to"`
	Color RGB         `yaml:"color" json:"color"`
}

func (r TransitionRule) Validate() error {
	if r.Name == "" {
		return configErrorf("rule %q has no name", r.Key)
	}
	if len(r.From) == 0 {
		return configErrorf("rule %q has empty from_classes", r.Name)
	}
	if len(r.To) == 0 {
		return configErrorf("rule %q has empty to_classes", r.Name)
	}
	return nil
}

// Identifier is the key used in reports; it falls back to the rule name.
func (r TransitionRule) Identifier() string {
	if r.Key != "" {
		return r.Key
	}
	return r.Name
}

// Matches evaluates the rule predicate for a single pixel.
func (r TransitionRule) Matches(before, after ClassCode) bool {
	return contains(r.From, before) && contains(r.To, after)
}

func contains(codes []ClassCode, code ClassCode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func DefaultRules() []TransitionRule {
	return []TransitionRule{
		{
			Key:   "deforestation",
			Name:  "Deforestation",
			From:  []ClassCode{Vegetation},
			To:    []ClassCode{Urban, Soil, Road},
			Color: RGB{255, 0, 0},
		},
		{
			Key:   "construction",
			Name:  "New Construction",
			From:  []ClassCode{Soil, Vegetation},
			To:    []ClassCode{Urban},
			Color: RGB{0, 0, 255},
		},
		{
			Key:   "new_roads",
			Name:  "New Roads",
			From:  []ClassCode{Soil, Vegetation},
			To:    []ClassCode{Road},
			Color: RGB{255, 255, 0},
		},
		{
			Key:   "water_loss",
			Name:  "Water Loss",
			From:  []ClassCode{Water},
			To:    []ClassCode{Background, Urban, Soil, Road},
			Color: RGB{128, 0, 128},
		},
		{
			Key:   "vegetation_gain",
			Name:  "Vegetation Gain",
			From:  []ClassCode{Soil},
			To:    []ClassCode{Vegetation},
			Color: RGB{0, 255, 0},
		},
	}
}
