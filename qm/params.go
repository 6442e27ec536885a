/*
 * params.go, part of goNEB.
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

package qm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	chem "github.com/rmera/goneb"
)

//Params contains the parameters for the ABACUS calculations. Most of them go directly
//to the INPUT file, with the same name. pp and basis map element symbols (or STRU species
//labels) to pseudopotential and numerical orbital files.
type Params struct {
	Calculation    string            `yaml:"calculation"`
	XC             string            `yaml:"xc"`
	Ecutwfc        float64           `yaml:"ecutwfc"`
	SmearingMethod string            `yaml:"smearing_method"`
	SmearingSigma  float64           `yaml:"smearing_sigma"`
	BasisType      string            `yaml:"basis_type"`
	KSSolver       string            `yaml:"ks_solver"`
	MixingType     string            `yaml:"mixing_type"`
	SCFThr         float64           `yaml:"scf_thr"`
	SCFNmax        int               `yaml:"scf_nmax"`
	Kpts           []int             `yaml:"kpts"`
	PP             map[string]string `yaml:"pp"`
	Basis          map[string]string `yaml:"basis"`
	PseudoDir      string            `yaml:"pseudo_dir"`
	BasisDir       string            `yaml:"basis_dir"`
	VdwMethod      string            `yaml:"vdw_method"`
	CalForce       int               `yaml:"cal_force"`
	CalStress      int               `yaml:"cal_stress"`
	OutStru        int               `yaml:"out_stru"`
	OutChg         int               `yaml:"out_chg"`
	OutBandgap     int               `yaml:"out_bandgap"`
	EfieldFlag     int               `yaml:"efield_flag"`
	DipCorFlag     int               `yaml:"dip_cor_flag"`
	EfieldDir      int               `yaml:"efield_dir"`
	EfieldPosMax   float64           `yaml:"efield_pos_max"`
	Suffix         string            `yaml:"suffix"`
	//Extra contains any other INPUT key, written verbatim.
	Extra map[string]string `yaml:"extra,omitempty"`
}

//DefaultParams returns the parameters used for the CH4 dissociation on Ir(001).
//The pseudopotential and orbital directories are relative to the working directory.
func DefaultParams() Params {
	return Params{
		Calculation:    "scf",
		XC:             "pbe",
		Ecutwfc:        100,
		SmearingMethod: "gaussian",
		SmearingSigma:  0.002,
		BasisType:      "lcao",
		KSSolver:       "genelpa",
		MixingType:     "pulay",
		SCFThr:         1e-6,
		SCFNmax:        200,
		Kpts:           []int{4, 4, 1},
		PP: map[string]string{
			"Ir": "Au_ONCV_PBE-1.0.upf",
			"H":  "H_ONCV_PBE-1.0.upf",
			"C":  "C_ONCV_PBE-1.0.upf",
			"O":  "O_ONCV_PBE-1.0.upf",
		},
		Basis: map[string]string{
			"Ir": "Ir_gga_7au_100Ry_4s2p2d1f.orb",
			"H":  "H_gga_6au_100Ry_2s1p.orb",
			"C":  "C_gga_7au_100Ry_2s2p1d.orb",
			"O":  "O_gga_7au_100Ry_2s2p1d.orb",
		},
		PseudoDir:    "PP",
		BasisDir:     "ORB",
		VdwMethod:    "d3_bj",
		CalForce:     1,
		CalStress:    1,
		OutStru:      1,
		OutChg:       0,
		OutBandgap:   0,
		EfieldFlag:   1,
		DipCorFlag:   1,
		EfieldDir:    2,
		EfieldPosMax: 0.7,
		Suffix:       "ABACUS",
	}
}

//PlaneWaves returns true if the basis is plane waves, so no numerical orbitals are needed.
func (P *Params) PlaneWaves() bool {
	return strings.ToLower(P.BasisType) == "pw"
}

//Check returns an error if the parameters are not usable. If elements is not nil,
//it also checks that every element in it has a pseudopotential and, unless the
//basis is plane waves, a numerical orbital file.
func (P *Params) Check(elements []string) error {
	bad := func(format string, a ...interface{}) error {
		return &Error{ErrBadParams, Abacus, "", fmt.Sprintf(format, a...), []string{"Check"}, true}
	}
	switch {
	case P.Calculation == "":
		return bad("calculation not set")
	case P.Ecutwfc <= 0:
		return bad("ecutwfc must be positive, got %g", P.Ecutwfc)
	case P.SCFNmax <= 0:
		return bad("scf_nmax must be positive, got %d", P.SCFNmax)
	case P.SCFThr <= 0:
		return bad("scf_thr must be positive, got %g", P.SCFThr)
	case len(P.Kpts) != 3:
		return bad("kpts needs 3 values, got %d", len(P.Kpts))
	case P.CalForce != 1:
		return bad("cal_force must be 1, forces are needed")
	}
	for _, k := range P.Kpts {
		if k <= 0 {
			return bad("kpts must be positive, got %v", P.Kpts)
		}
	}
	if elements == nil {
		return nil
	}
	missing := chem.MissingElements(elements, P.PP)
	if len(missing) > 0 {
		return &Error{ErrMissingFiles, Abacus, "", "no pseudopotential for " + strings.Join(missing, ", "), []string{"Check"}, true}
	}
	if P.PlaneWaves() {
		return nil
	}
	missing = chem.MissingElements(elements, P.Basis)
	if len(missing) > 0 {
		return &Error{ErrMissingFiles, Abacus, "", "no numerical orbital for " + strings.Join(missing, ", "), []string{"Check"}, true}
	}
	return nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

//inputLines returns the key-value pairs for the INPUT file, in a fixed order.
func (P *Params) inputLines() [][2]string {
	ret := [][2]string{
		{"calculation", P.Calculation},
		{"suffix", P.Suffix},
		{"pseudo_dir", P.PseudoDir},
	}
	if !P.PlaneWaves() {
		ret = append(ret, [2]string{"orbital_dir", P.BasisDir})
	}
	ret = append(ret, [][2]string{
		{"xc", P.XC},
		{"ecutwfc", ftoa(P.Ecutwfc)},
		{"smearing_method", P.SmearingMethod},
		{"smearing_sigma", ftoa(P.SmearingSigma)},
		{"basis_type", P.BasisType},
		{"ks_solver", P.KSSolver},
		{"mixing_type", P.MixingType},
		{"scf_thr", ftoa(P.SCFThr)},
		{"scf_nmax", strconv.Itoa(P.SCFNmax)},
		{"vdw_method", P.VdwMethod},
		{"cal_force", strconv.Itoa(P.CalForce)},
		{"cal_stress", strconv.Itoa(P.CalStress)},
		{"out_stru", strconv.Itoa(P.OutStru)},
		{"out_chg", strconv.Itoa(P.OutChg)},
		{"out_bandgap", strconv.Itoa(P.OutBandgap)},
		{"efield_flag", strconv.Itoa(P.EfieldFlag)},
		{"dip_cor_flag", strconv.Itoa(P.DipCorFlag)},
		{"efield_dir", strconv.Itoa(P.EfieldDir)},
		{"efield_pos_max", ftoa(P.EfieldPosMax)},
	}...)
	//empty values are left for ABACUS to decide.
	final := ret[:0]
	for _, v := range ret {
		if v[1] != "" {
			final = append(final, v)
		}
	}
	keys := make([]string, 0, len(P.Extra))
	for k := range P.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		final = append(final, [2]string{k, P.Extra[k]})
	}
	return final
}

//Copy returns a deep copy of the parameters.
func (P Params) Copy() Params {
	ret := P
	ret.Kpts = append([]int(nil), P.Kpts...)
	cp := func(m map[string]string) map[string]string {
		if m == nil {
			return nil
		}
		r := make(map[string]string, len(m))
		for k, v := range m {
			r[k] = v
		}
		return r
	}
	ret.PP = cp(P.PP)
	ret.Basis = cp(P.Basis)
	ret.Extra = cp(P.Extra)
	return ret
}
