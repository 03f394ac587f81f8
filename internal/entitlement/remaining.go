package entitlement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const unlimitedLiteral = "unlimited"

// Remaining is a count of uses left, or unlimited.
type Remaining struct {
	unlimited bool
	count     int
}

func Unlimited() Remaining {
	return Remaining{unlimited: true}
}

// Uses returns a finite remaining count. Negative values clamp to zero.
func Uses(n int) Remaining {
	if n < 0 {
		n = 0
	}
	return Remaining{count: n}
}

func (r Remaining) IsUnlimited() bool { return r.unlimited }

// Count is meaningless when IsUnlimited is true.
func (r Remaining) Count() int { return r.count }

// Allows reports whether at least one more use is permitted.
func (r Remaining) Allows() bool {
	return r.unlimited || r.count > 0
}

func (r Remaining) String() string {
	if r.unlimited {
		return unlimitedLiteral
	}
	return strconv.Itoa(r.count)
}

func (r Remaining) MarshalJSON() ([]byte, error) {
	if r.unlimited {
		return []byte(`"` + unlimitedLiteral + `"`), nil
	}
	return []byte(strconv.Itoa(r.count)), nil
}

func (r *Remaining) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte(`"`+unlimitedLiteral+`"`)) {
		*r = Unlimited()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("remaining must be %q or an integer: %w", unlimitedLiteral, err)
	}
	*r = Uses(n)
	return nil
}
