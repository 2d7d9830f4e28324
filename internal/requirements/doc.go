// Package requirements derives nutrient requirements for a formulation.
//
// It computes daily energy needs of dogs and cats (RER and MER), rescales
// per-energy reference requirements to the energy density of a diet, and
// converts requirement units to percent of the mix, the unit the formulator
// works in.
//
// Example usage:
//
//	e, err := requirements.Energy(requirements.SpeciesDog,
//	    requirements.ConditionAdultNeutered, 12, requirements.FormulaAuto)
//	if err != nil {
//	    return err
//	}
//	reqs, err := requirements.ForDiet(requirements.SpeciesDog, 3500)
package requirements
