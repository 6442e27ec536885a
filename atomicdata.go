/*
 * atomicdata.go, part of goNEB.
 *
 * Copyright 2026 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package chem

//Bohr is the Bohr radius in A, the length unit of the ABACUS STRU file.
const Bohr = 0.529177210903

//A map for assigning mass to elements.
//Note that the common surface-science metals are present, but not every element.
var symbolMass = map[string]float64{
	"H":  1.008,
	"He": 4.0026,
	"Li": 6.94,
	"Be": 9.012,
	"B":  10.81,
	"C":  12.011,
	"N":  14.007,
	"O":  15.999,
	"F":  18.998,
	"Na": 22.99,
	"Mg": 24.305,
	"Al": 26.982,
	"Si": 28.085,
	"P":  30.974,
	"S":  32.06,
	"Cl": 35.45,
	"K":  39.098,
	"Ca": 40.078,
	"Ti": 47.867,
	"V":  50.942,
	"Cr": 51.996,
	"Mn": 54.938,
	"Fe": 55.845,
	"Co": 58.933,
	"Ni": 58.693,
	"Cu": 63.546,
	"Zn": 65.38,
	"Ga": 69.723,
	"Ge": 72.63,
	"Se": 78.971,
	"Br": 79.904,
	"Zr": 91.224,
	"Mo": 95.95,
	"Ru": 101.07,
	"Rh": 102.91,
	"Pd": 106.42,
	"Ag": 107.87,
	"Sn": 118.71,
	"I":  126.90,
	"Ce": 140.12,
	"Hf": 178.49,
	"Ta": 180.95,
	"W":  183.84,
	"Re": 186.21,
	"Os": 190.23,
	"Ir": 192.217,
	"Pt": 195.084,
	"Au": 196.967,
}

//AtomicMass returns the standard atomic mass for the symbol, and
//false if the element is not in the table.
func AtomicMass(symbol string) (float64, bool) {
	m, ok := symbolMass[symbol]
	return m, ok
}

//symbolFromLabel guesses the chemical symbol from a STRU species label
//such as "Ir", "Ir1", "H_top" or "Cu2+". It returns the empty string if it can't.
func symbolFromLabel(label string) string {
	if len(label) == 0 {
		return ""
	}
	if len(label) >= 2 {
		two := label[:2]
		if _, ok := symbolMass[two]; ok && two[1] >= 'a' && two[1] <= 'z' {
			return two
		}
	}
	if _, ok := symbolMass[label[:1]]; ok {
		return label[:1]
	}
	return ""
}
