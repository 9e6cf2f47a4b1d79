package multiobjective

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

// ProblemMode controls how a raw input shapes the problem solved for it.
type ProblemMode string

const (
	// ModeFixed solves the same problem for every input.
	ModeFixed ProblemMode = "Fixed"
	// ModeInputCeilings caps category i at input[i].
	ModeInputCeilings ProblemMode = "InputCeilings"
)

// ProblemTemplate holds the parameters shared by every problem instance.
type ProblemTemplate struct {
	Budget     float64
	Bounds     []framework.Bounds
	Weights    [][]float64
	Categories []string
	Mode       ProblemMode
}

// ProblemCache builds allocation problems for raw inputs and memoizes them by
// their effective parameters. It is safe for concurrent use.
type ProblemCache struct {
	template ProblemTemplate
	problems *cache.Cache
}

// NewProblemCache validates the template by building its base problem.
func NewProblemCache(template ProblemTemplate) (*ProblemCache, error) {
	switch template.Mode {
	case ModeFixed, ModeInputCeilings:
	default:
		return nil, fmt.Errorf("%w: unknown problem mode %q", framework.ErrInvalidConfiguration, template.Mode)
	}

	base, err := NewAllocationProblem(template.Budget, template.Bounds, template.Weights, template.Categories)
	if err != nil {
		return nil, err
	}

	c := &ProblemCache{
		template: template,
		problems: cache.New(cache.NoExpiration, 0),
	}
	c.problems.SetDefault(boundsKey(template.Bounds), base)
	return c, nil
}

// Template returns the parameters the cache was built with.
func (c *ProblemCache) Template() ProblemTemplate {
	return c.template
}

// Len is the number of distinct problems built so far.
func (c *ProblemCache) Len() int {
	return c.problems.ItemCount()
}

// ForInput returns the problem to solve for input.
func (c *ProblemCache) ForInput(input []float64) (*AllocationProblem, error) {
	bounds := c.template.Bounds
	if c.template.Mode == ModeInputCeilings {
		if len(input) < len(bounds) {
			return nil, fmt.Errorf("%w: input has %d features, %d ceilings needed",
				framework.ErrInvalidConfiguration, len(input), len(bounds))
		}
		bounds = make([]framework.Bounds, len(c.template.Bounds))
		for i, b := range c.template.Bounds {
			bounds[i] = framework.Bounds{L: b.L, H: math.Max(b.L, math.Min(b.H, input[i]))}
		}
	}

	key := boundsKey(bounds)
	if p, ok := c.problems.Get(key); ok {
		return p.(*AllocationProblem), nil
	}

	p, err := NewAllocationProblem(c.template.Budget, bounds, c.template.Weights, c.template.Categories)
	if err != nil {
		return nil, err
	}
	c.problems.SetDefault(key, p)
	return p, nil
}

func boundsKey(bounds []framework.Bounds) string {
	var sb strings.Builder
	for i, b := range bounds {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.FormatFloat(b.L, 'g', -1, 64))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(b.H, 'g', -1, 64))
	}
	return sb.String()
}
