package data

import (
	_ "embed"

	"github.com/pkg/errors"
)

//go:embed admissions.csv
var admissionsCSV []byte

//go:embed plantgrowth.csv
var plantGrowthCSV []byte

// LoadAdmissions returns the aggregated UC Berkeley graduate admissions table
// (1973): one row per department x applicant gender with admit/reject counts.
// A derived numeric indicator column "male" is added for use as a slope.
func LoadAdmissions() (*Frame, error) {
	f, err := FromCSV("ucbadmit", admissionsCSV)
	if err != nil {
		return nil, err
	}

	applicant, err := f.Col("applicant")
	if err != nil {
		return nil, err
	}
	lv, err := f.Levels("applicant")
	if err != nil {
		return nil, err
	}

	maleIdx := -1
	for i, l := range lv {
		if l == "male" {
			maleIdx = i
		}
	}
	if maleIdx < 0 {
		return nil, errors.Errorf("Admissions data has no male applicant level")
	}

	male := make([]float64, len(applicant))
	for i, a := range applicant {
		if int(a) == maleIdx {
			male[i] = 1.0
		}
	}

	err = f.AddNumeric("male", male)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// LoadPlantGrowth returns the plant growth experiment: dried plant weight for
// 30 plants under a control and two treatment conditions.
func LoadPlantGrowth() (*Frame, error) {
	return FromCSV("plantgrowth", plantGrowthCSV)
}
