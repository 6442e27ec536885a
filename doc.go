/*
 * doc.go, part of goNEB.
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

/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

/*Package chem is the main package of goNEB. It provides atom and structure types, and
facilities for reading and writing the files used in plane-wave and LCAO DFT calculations
on periodic systems, mainly the ABACUS STRU format.



	**goNEB Capabilities**


    Reads/writes ABACUS STRU files, keeping the fixed/free flags for each
	cartesian component of each atom.

    Reads/writes XYZ and extended XYZ (trajectory) frames.

    Converts between fractional and cartesian coordinates for periodic cells.

    Runs ABACUS single-point calculations to obtain energies and forces (package qm).

    Relaxes structures with FIRE, BFGS and L-BFGS (package opt).

    Finds minimum energy paths and transition states with the (climbing image, dynamic)
	nudged elastic band method, starting from linear or IDPP interpolations (package neb).

    Plots energy profiles (package chemplot) and drives the whole relax-endpoints-then-NEB
	procedure with checkpoints (package workflow, command goneb).


Coordinates are kept in v3.Matrix objects, based on gonum (gonum.org/v1/gonum/mat), with
one row per atom. Lengths are in A, energies in eV and forces in eV/A throughout.*/
package chem
