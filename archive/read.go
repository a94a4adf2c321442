/*
Copyright © 2024 the uclchemtools authors.
This file is part of uclchemtools.

uclchemtools is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

uclchemtools is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with uclchemtools.  If not, see <http://www.gnu.org/licenses/>.
*/

package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/lookup"
)

// LazyTables maps species names to tables that are read from the archive
// the first time they are requested.
type LazyTables struct {
	keys    []string
	entries map[string]*lazyTable
}

type lazyTable struct {
	once   sync.Once
	load   func() (*uclchemtools.Table, error)
	mu     sync.Mutex
	loaded bool
	t      *uclchemtools.Table
	err    error
}

func (l *lazyTable) get() (*uclchemtools.Table, error) {
	l.once.Do(func() {
		t, err := l.load()
		l.mu.Lock()
		l.t, l.err, l.loaded = t, err, true
		l.mu.Unlock()
	})
	return l.t, l.err
}

func newLazyTables() *LazyTables {
	return &LazyTables{entries: make(map[string]*lazyTable)}
}

func (lt *LazyTables) add(key string, load func() (*uclchemtools.Table, error)) {
	lt.keys = append(lt.keys, key)
	lt.entries[key] = &lazyTable{load: load}
}

// Keys returns the species names in sorted order.
func (lt *LazyTables) Keys() []string { return append([]string(nil), lt.keys...) }

// Len returns the number of species.
func (lt *LazyTables) Len() int { return len(lt.keys) }

// Get returns the table of a species, loading it if necessary.
func (lt *LazyTables) Get(species string) (*uclchemtools.Table, error) {
	e, ok := lt.entries[uclchemtools.Canonical(species)]
	if !ok {
		return nil, fmt.Errorf("%w: rate table for %s", ErrNotFound, species)
	}
	return e.get()
}

// Loaded returns whether the table of a species has been loaded.
func (lt *LazyTables) Loaded(species string) bool {
	e, ok := lt.entries[uclchemtools.Canonical(species)]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// LoadAll loads every table, returning the first error.
func (lt *LazyTables) LoadAll() error {
	for _, k := range lt.keys {
		if _, err := lt.entries[k].get(); err != nil {
			return err
		}
	}
	return nil
}

// RunData is a run read back from an archive.
type RunData struct {
	ID string

	// Abundances holds the stored abundances. The Time column has full
	// precision; other numeric columns are float32.
	Abundances *uclchemtools.Table

	// Species and Reactions are the reference tables with names decoded.
	Species, Reactions *uclchemtools.Table

	// Derivatives is nil if none were stored.
	Derivatives *uclchemtools.Table

	TotalRates, Production, Destruction *LazyTables
}

// ReadRun reads a run. Rate tables are loaded on demand and must be
// accessed before the archive is closed.
func (a *Archive) ReadRun(ctx context.Context, id string) (*RunData, error) {
	ok, err := a.HasRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	l, err := a.Lookup(ctx)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("archive: %s has no lookup table", a.path)
	}
	rd := &RunData{
		ID:          id,
		TotalRates:  newLazyTables(),
		Production:  newLazyTables(),
		Destruction: newLazyTables(),
	}
	if rd.Abundances, err = a.Dataset(ctx, abundancesPath(id)); err != nil {
		return nil, err
	}
	rd.Abundances = rd.Abundances.Copy()
	species, err := a.Dataset(ctx, speciesPath(id))
	if err != nil {
		return nil, err
	}
	if rd.Species, err = lookup.DecodeSpecies(species, l); err != nil {
		return nil, fmt.Errorf("archive: run %s: %w", id, err)
	}
	reactions, err := a.Dataset(ctx, reactionsPath(id))
	if err != nil {
		return nil, err
	}
	if rd.Reactions, err = lookup.DecodeReactions(reactions, l); err != nil {
		return nil, fmt.Errorf("archive: run %s: %w", id, err)
	}

	paths, err := a.Datasets(ctx, id)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	prefix := id + "/rates/"
	for _, p := range paths {
		if p == derivativesPath(id) {
			if rd.Derivatives, err = a.Dataset(ctx, p); err != nil {
				return nil, err
			}
			rd.Derivatives = rd.Derivatives.Copy()
			continue
		}
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(p, prefix), "/", 2)
		if len(parts) != 2 {
			continue
		}
		path := p
		load := func() (*uclchemtools.Table, error) {
			t, err := a.Dataset(ctx, path)
			if err != nil {
				return nil, err
			}
			return t.Copy(), nil
		}
		switch parts[0] {
		case TotalRates:
			rd.TotalRates.add(parts[1], load)
		case Production:
			rd.Production.add(parts[1], load)
		case Destruction:
			rd.Destruction.add(parts[1], load)
		}
	}
	return rd, nil
}
