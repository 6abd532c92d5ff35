package record

import (
	"strings"

	"github.com/beka-birhanu/navstudy/game"
)

// Generalization orders.
const (
	FirstOrder  = "first-order"
	SecondOrder = "second-order"
)

// PlanDecoding is a planning submission translated through a vehicle's
// bindings and scored against the optimal route.
type PlanDecoding struct {
	Raw        []string         `json:"raw" bson:"raw"`
	Translated []game.Direction `json:"translated" bson:"translated"`
	Valid      []bool           `json:"valid" bson:"valid"`
	Correct    []bool           `json:"correct" bson:"correct"`

	ValidCount        int `json:"validCount" bson:"valid_count"`
	CorrectCount      int `json:"correctCount" bson:"correct_count"`
	CorrectVertical   int `json:"correctHL" bson:"correct_hl"` // correct up/down steps
	CorrectHorizontal int `json:"correctLL" bson:"correct_ll"` // correct left/right steps

	// Bias sums the sibling bias of keys: -1 for keys only the first sibling
	// binds, +1 for keys only the second binds. Always 0 for first-order
	// vehicles.
	BiasValid   int    `json:"biasValid" bson:"bias_valid"`
	BiasCorrect int    `json:"biasCorrect" bson:"bias_correct"`
	Order       string `json:"order" bson:"order"`
}

// Decode translates plan one character at a time. Characters outside the
// vehicle's bindings decode to game.DirectionInvalid.
func Decode(v game.Vehicle, plan string, optimal []game.Direction) PlanDecoding {
	dec := PlanDecoding{Order: FirstOrder}
	if v.Composite() {
		dec.Order = SecondOrder
	}

	for _, ch := range plan {
		key := strings.ToLower(string(ch))
		d, ok := v.Direction(key)
		if !ok {
			d = game.DirectionInvalid
		}
		idx := len(dec.Raw)
		correct := ok && idx < len(optimal) && optimal[idx] == d

		dec.Raw = append(dec.Raw, key)
		dec.Translated = append(dec.Translated, d)
		dec.Valid = append(dec.Valid, ok)
		dec.Correct = append(dec.Correct, correct)

		if ok {
			dec.ValidCount++
			dec.BiasValid += v.Bias(key)
		}
		if correct {
			dec.CorrectCount++
			dec.BiasCorrect += v.Bias(key)
			if d.Vertical() {
				dec.CorrectVertical++
			} else {
				dec.CorrectHorizontal++
			}
		}
	}
	return dec
}
