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

/*Package neb implements the nudged elastic band method for finding minimum energy paths
and transition states between two relaxed structures.

A Band holds the endpoints and a number of intermediate images, each one calculated with
its own engine. The band is interpolated (linearly or with IDPP) and then relaxed with
an optimizer from package opt, usually FIRE, as the band forces are not the gradient of
any energy. Tangents can be the improved (upwind) tangents of Henkelman and Jonsson, or the
older, simpler ones. The highest image can climb to the saddle point, and images that are
already converged can be left alone (dynamic NEB).

A converged band can be turned into a Path, which gives the energy profile and the barriers.*/
package neb
