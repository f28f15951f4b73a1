package posterior

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// Prior is a one-dimensional prior density. The zero value is not usable:
// construct with Normal, Exponential, or StudentsT.
type Prior struct {
	desc string
	dist interface{ LogProb(float64) float64 }
}

// Normal returns a Normal(mu, sigma) prior.
func Normal(mu, sigma float64) Prior {
	return Prior{
		desc: fmt.Sprintf("Normal(%g, %g)", mu, sigma),
		dist: distuv.Normal{Mu: mu, Sigma: sigma},
	}
}

// Exponential returns an Exponential(rate) prior. Used for scale parameters.
func Exponential(rate float64) Prior {
	return Prior{
		desc: fmt.Sprintf("Exponential(%g)", rate),
		dist: distuv.Exponential{Rate: rate},
	}
}

// StudentsT returns a StudentsT(mu, sigma, nu) prior for fat-tailed shrinkage.
func StudentsT(mu, sigma, nu float64) Prior {
	return Prior{
		desc: fmt.Sprintf("StudentsT(%g, %g, %g)", mu, sigma, nu),
		dist: distuv.StudentsT{Mu: mu, Sigma: sigma, Nu: nu},
	}
}

// Valid is true when the prior was built by a constructor.
func (p Prior) Valid() bool {
	return p.dist != nil
}

// LogProb evaluates the prior log density.
func (p Prior) LogProb(x float64) float64 {
	return p.dist.LogProb(x)
}

func (p Prior) String() string {
	if p.dist == nil {
		return "Prior(unset)"
	}
	return p.desc
}
