/*
 * plotutils.go, part of goNEB.
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

package chemplot

import (
	"image/color"
	"math"
)

//Some internal convenience functions.

//hsv2RGB takes hue (0-360), s and v (0-1), returns the color.
func hsv2RGB(h, s, v float64) color.RGBA {
	if s == 0.0 {
		c := uint8(255 * v)
		return color.RGBA{R: c, G: c, B: c, A: 255}
	}
	h = math.Mod(h, 360) / 60
	i := math.Floor(h)
	f := h - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	var r, g, b float64
	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default: //case 5
		r, g, b = v, p, q
	}
	return color.RGBA{R: uint8(255 * r), G: uint8(255 * g), B: uint8(255 * b), A: 255}
}

//colors returns a color for the key-th of steps elements, going from blue to red.
func colors(key, steps int) color.RGBA {
	if steps < 2 {
		return hsv2RGB(240, 1, 0.9)
	}
	h := 240 * (1 - float64(key)/float64(steps-1))
	return hsv2RGB(h, 1, 0.9)
}
