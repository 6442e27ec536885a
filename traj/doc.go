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

/*Package traj writes and reads optimization and NEB trajectories in the extended XYZ
format. Each frame carries the cell, the energy, the largest atomic force and the forces
on each atom, besides the coordinates, so a trajectory is enough to rebuild a band or
to restart an optimization. Files whose name ends in ".zst" are compressed with zstd.

A frame looks like:

	9
	Lattice="5.43 0 0 0 5.43 0 0 0 20" Properties=species:S:1:pos:R:3:forces:R:3 energy=-1234.5 fmax=0.04 image=3 pbc="T T T"
	Ir     0.00000000     0.00000000     0.00000000     0.00000000     0.00000000     0.00000000
	...
*/
package traj
