// Package notation parses damage strings from spell content into typed roll
// requests.
//
// Two forms are recognised, case-insensitively and ignoring whitespace:
//
//	<count>D<faces>[+|-<modifier>]            e.g. "2D6", "1d8+3"
//	<N>x(<count>D<faces>[+<bonus>])           e.g. "3x(1D4+1)"
//
// The second form is a volley: N independent projectiles, each worth its
// own dice plus the bonus.
package notation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	gerr "github.com/KirkDiggler/grimoire/internal/errors"
)

var (
	standardRegex = regexp.MustCompile(`^(\d+)d(\d+)(?:([+-])(\d+))?$`)
	volleyRegex   = regexp.MustCompile(`^(\d+)x\((\d+)d(\d+)(?:\+(\d+))?\)$`)
)

// Upper bounds on parsed numbers.
const (
	MaxCount       = 100
	MaxSides       = 1000
	MaxProjectiles = 100
	MaxModifier    = 1000
)

// Kind distinguishes the two notation forms.
type Kind int

const (
	KindStandard Kind = iota
	KindVolley
)

func (k Kind) String() string {
	if k == KindVolley {
		return "volley"
	}
	return "standard"
}

// Request is a parsed damage expression.
type Request struct {
	Raw  string
	Kind Kind

	// Projectiles is 1 for standard rolls.
	Projectiles int
	// Count and Sides describe the dice of one projectile.
	Count int
	Sides int
	// Modifier is the flat modifier of a standard roll, or the per-projectile
	// bonus of a volley.
	Modifier int
}

// Parse turns a damage string into a Request.
func Parse(raw string) (*Request, error) {
	clean := strings.ToLower(strings.Join(strings.Fields(raw), ""))
	if clean == "" {
		return nil, gerr.InvalidArgument("dice notation is required")
	}

	if m := volleyRegex.FindStringSubmatch(clean); m != nil {
		req := &Request{Raw: raw, Kind: KindVolley}
		if err := parseFields(raw, m[1:], &req.Projectiles, &req.Count, &req.Sides, &req.Modifier); err != nil {
			return nil, err
		}
		return req, req.validate()
	}

	if m := standardRegex.FindStringSubmatch(clean); m != nil {
		req := &Request{Raw: raw, Kind: KindStandard, Projectiles: 1}
		if err := parseFields(raw, []string{m[1], m[2], m[4]}, &req.Count, &req.Sides, &req.Modifier); err != nil {
			return nil, err
		}
		if m[3] == "-" {
			req.Modifier = -req.Modifier
		}
		return req, req.validate()
	}

	return nil, gerr.InvalidArgumentf("invalid dice notation: %s (expected XdY, XdY+Z or Nx(XdY+Z))", raw).
		WithMeta("notation", raw)
}

// MustParse parses raw and panics on error. Meant for content known at
// build time.
func MustParse(raw string) *Request {
	req, err := Parse(raw)
	if err != nil {
		panic("notation: MustParse(" + raw + "): " + err.Error())
	}
	return req
}

// parseFields converts matched digit groups into dst in order. Empty groups
// leave their target at zero.
func parseFields(raw string, groups []string, dst ...*int) error {
	for i, g := range groups {
		if g == "" {
			continue
		}
		n, err := strconv.Atoi(g)
		if err != nil || n > MaxModifier {
			return gerr.InvalidArgumentf("number %s out of range in %s", g, raw).
				WithMeta("notation", raw)
		}
		*dst[i] = n
	}
	return nil
}

func (r *Request) validate() error {
	if r.Count < 1 || r.Sides < 1 || r.Projectiles < 1 {
		return gerr.InvalidArgumentf("dice count, size and projectiles must be positive: %s", r.Raw)
	}
	if r.Count > MaxCount || r.Projectiles > MaxProjectiles || r.Sides > MaxSides {
		return gerr.InvalidArgumentf("at most %d dice of %d sides and %d projectiles: %s",
			MaxCount, MaxSides, MaxProjectiles, r.Raw).
			WithMeta("notation", r.Raw)
	}
	return nil
}

// Min is the lowest total the request can produce.
func (r *Request) Min() int {
	return r.Projectiles * (r.Count + r.Modifier)
}

// Max is the highest total the request can produce.
func (r *Request) Max() int {
	return r.Projectiles * (r.Count*r.Sides + r.Modifier)
}

// WithCount returns a copy with a different per-projectile die count.
func (r *Request) WithCount(count int) *Request {
	c := *r
	c.Count = count
	return &c
}

// WithProjectiles returns a copy with a different projectile count.
func (r *Request) WithProjectiles(n int) *Request {
	c := *r
	c.Projectiles = n
	return &c
}

// String renders the request back into canonical notation.
func (r *Request) String() string {
	dice := fmt.Sprintf("%dD%d", r.Count, r.Sides)
	if r.Kind == KindVolley {
		if r.Modifier != 0 {
			return fmt.Sprintf("%dx(%s+%d)", r.Projectiles, dice, r.Modifier)
		}
		return fmt.Sprintf("%dx(%s)", r.Projectiles, dice)
	}

	switch {
	case r.Modifier > 0:
		return fmt.Sprintf("%s+%d", dice, r.Modifier)
	case r.Modifier < 0:
		return fmt.Sprintf("%s%d", dice, r.Modifier)
	default:
		return dice
	}
}
