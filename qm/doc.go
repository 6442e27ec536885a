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

//Package qm runs the external DFT program (ABACUS) that gives the energies and forces
//for goNEB. A Handle builds the input in its own directory, launches the program
//through a Profile (MPI launcher, processes and OpenMP threads) and parses energy and forces
//from the output. The Engine interface is what the optimizers and the NEB band use, and
//Cached avoids repeating calculations for geometries already computed.

package qm
