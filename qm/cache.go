/*
 * cache.go, part of goNEB.
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
	"context"
	"crypto/sha1"
	"encoding/binary"
	"math"
	"sync"

	chem "github.com/rmera/goneb"
)

var _ Engine = (*Cached)(nil)

//Cached wraps an Engine so a geometry is never calculated twice. Results
//are keyed by the exact coordinates and cell. It is safe for concurrent use, but
//concurrent calls for the same new geometry will both run the engine.
type Cached struct {
	engine Engine
	mu     sync.Mutex
	cache  map[[sha1.Size]byte]*Result
	calls  int
	hits   int
}

//NewCached returns a caching wrapper around engine.
func NewCached(engine Engine) *Cached {
	return &Cached{
		engine: engine,
		cache:  map[[sha1.Size]byte]*Result{},
	}
}

func hashStructure(S *chem.Structure) [sha1.Size]byte {
	coords := S.Coords.Flat()
	cell := S.Cell.Vectors()
	data := make([]byte, (len(coords)+len(cell))*8)
	for i, v := range append(coords, cell...) {
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return sha1.Sum(data)
}

//Calculate returns the cached result for S if there is one, otherwise it runs
//the wrapped engine and stores the result. The returned result is a copy.
func (C *Cached) Calculate(ctx context.Context, S *chem.Structure) (*Result, error) {
	key := hashStructure(S)
	C.mu.Lock()
	if r, ok := C.cache[key]; ok {
		C.hits++
		C.mu.Unlock()
		return r.Copy(), nil
	}
	C.mu.Unlock()
	r, err := C.engine.Calculate(ctx, S)
	if err != nil {
		return nil, err
	}
	C.mu.Lock()
	C.calls++
	C.cache[key] = r.Copy()
	C.mu.Unlock()
	return r, nil
}

//Stats returns the number of engine calculations and the number of
//results served from the cache.
func (C *Cached) Stats() (calls, hits int) {
	C.mu.Lock()
	defer C.mu.Unlock()
	return C.calls, C.hits
}
