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
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/lookup"
	"github.com/spatialmodel/uclchemtools/rates"
)

func testRun(t *testing.T, id string) *Run {
	s, err := os.Open("../testdata/species.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	r, err := os.Open("../testdata/reactions.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	n, err := uclchemtools.ReadNetwork(s, r)
	if err != nil {
		t.Fatal(err)
	}
	o, err := uclchemtools.ReadOutputFile("../testdata/output.csv")
	if err != nil {
		t.Fatal(err)
	}
	tables, err := rates.Assemble([]rates.Record{
		{Time: 0, TotalProduction: 1, TotalDestruction: 2,
			Production:  []rates.Share{{Reaction: "HCO+ + E- -> CO + H", Share: 1}},
			Destruction: []rates.Share{{Reaction: "CO + FREEZE -> #CO", Share: 1}}},
		{Time: 1e3, TotalProduction: 3, TotalDestruction: 4,
			Production:  []rates.Share{{Reaction: "#CO + DESCR -> CO", Share: 1}},
			Destruction: []rates.Share{{Reaction: "CO + FREEZE -> #CO", Share: 1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &Run{
		ID:         id,
		Source:     "../testdata/output.csv",
		Abundances: o,
		Network:    n,
		Rates: map[string]*rates.Tables{
			"CO":   tables,
			"BULK": rates.EmptyTables(),
		},
	}
}

func write(t *testing.T, path string, runs ...*Run) error {
	return Update(context.Background(), path, func(a *Archive) error {
		for _, r := range runs {
			if err := a.WriteRun(context.Background(), r, WriteOptions{}); err != nil {
				return err
			}
		}
		return nil
	})
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	run := testRun(t, "grid_0")
	if err := write(t, path, run); err != nil {
		t.Fatal(err)
	}
	err := View(context.Background(), path, func(a *Archive) error {
		rd, err := a.ReadRun(context.Background(), "grid_0")
		if err != nil {
			return err
		}
		if want := run.Abundances.Float32(uclchemtools.TimeColumn); !reflect.DeepEqual(rd.Abundances, want) {
			t.Errorf("abundances: have %v, want %v", rd.Abundances, want)
		}
		if c := rd.Abundances.Column(uclchemtools.TimeColumn); c.Kind != uclchemtools.Float64 {
			t.Errorf("time column has kind %v", c.Kind)
		}
		if c := rd.Abundances.Column("CO"); c.Kind != uclchemtools.Float32 {
			t.Errorf("abundance column has kind %v", c.Kind)
		}
		if !reflect.DeepEqual(rd.Species, run.Network.SpeciesTable) {
			t.Errorf("species: have %v, want %v", rd.Species, run.Network.SpeciesTable)
		}
		if !reflect.DeepEqual(rd.Reactions, run.Network.ReactionTable) {
			t.Errorf("reactions: have %v, want %v", rd.Reactions, run.Network.ReactionTable)
		}
		if rd.Derivatives != nil {
			t.Error("derivatives should not be stored")
		}
		if want := []string{"BULK", "CO"}; !reflect.DeepEqual(rd.Production.Keys(), want) {
			t.Errorf("production keys: have %v, want %v", rd.Production.Keys(), want)
		}
		if rd.Production.Loaded("CO") {
			t.Error("table loaded before it was requested")
		}
		prod, err := rd.Production.Get("co")
		if err != nil {
			return err
		}
		if !rd.Production.Loaded("CO") {
			t.Error("table not marked as loaded")
		}
		if want := []string{"HCO+ + E- -> CO + H", "#CO + DESCR -> CO"}; !reflect.DeepEqual(prod.Names(), want) {
			t.Errorf("production columns: have %v, want %v", prod.Names(), want)
		}
		v, _ := prod.Floats("#CO + DESCR -> CO")
		if !math.IsNaN(v[0]) || v[1] != 1 {
			t.Errorf("have %v", v)
		}
		summary, err := rd.TotalRates.Get("CO")
		if err != nil {
			return err
		}
		if !reflect.DeepEqual(summary.Index, []float64{0, 1e3}) {
			t.Errorf("summary index: have %v", summary.Index)
		}
		empty, err := rd.Destruction.Get("BULK")
		if err != nil {
			return err
		}
		if !empty.Empty() {
			t.Errorf("BULK table should be empty: %v", empty.Names())
		}
		if _, err := rd.Destruction.Get("H2"); !errors.Is(err, ErrNotFound) {
			t.Errorf("have %v, want ErrNotFound", err)
		}
		return rd.TotalRates.LoadAll()
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLookupStability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	a := testRun(t, "grid_0")
	if err := write(t, path, a); err != nil {
		t.Fatal(err)
	}
	var first *lookup.Lookup
	View(context.Background(), path, func(ar *Archive) (err error) {
		first, err = ar.Lookup(context.Background())
		return err
	})
	want := lookup.Build(a.Network.Species, a.Network.TypeTags())
	if first == nil || !first.Equal(want) {
		t.Fatalf("lookup: have %v, want %v", first, want)
	}
	if err := write(t, path, testRun(t, "grid_1")); err != nil {
		t.Fatal(err)
	}
	View(context.Background(), path, func(ar *Archive) error {
		second, err := ar.Lookup(context.Background())
		if err != nil {
			return err
		}
		if !second.Equal(first) {
			t.Errorf("lookup changed: have %v, want %v", second.Names(), first.Names())
		}
		runs, err := ar.Runs(context.Background())
		if err != nil {
			return err
		}
		if len(runs) != 2 || runs[0].ID != "grid_0" || runs[1].ID != "grid_1" {
			t.Errorf("runs: have %+v", runs)
		}
		return nil
	})
}

func TestSchemaGuard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	if err := write(t, path, testRun(t, "grid_0")); err != nil {
		t.Fatal(err)
	}
	b := testRun(t, "grid_1")
	if err := uclchemtools.AddDerived(b.Abundances, "$CO", "[#CO] + [@CO]"); err != nil {
		t.Fatal(err)
	}
	err := write(t, path, b)
	var sm *SchemaMismatchError
	if !errors.As(err, &sm) {
		t.Fatalf("have %v, want a SchemaMismatchError", err)
	}
	if sm.RunID != "grid_1" || len(sm.Have) != len(sm.Want)+1 {
		t.Errorf("error: %+v", sm)
	}
	View(context.Background(), path, func(a *Archive) error {
		runs, _ := a.Runs(context.Background())
		if len(runs) != 1 || runs[0].Rows != 3 {
			t.Errorf("runs: have %+v", runs)
		}
		ds, _ := a.Datasets(context.Background(), "grid_1")
		if len(ds) != 0 {
			t.Errorf("datasets written for the rejected run: %v", ds)
		}
		return nil
	})
}

func TestWriteErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	if err := write(t, path, testRun(t, "grid_0")); err != nil {
		t.Fatal(err)
	}
	if err := write(t, path, testRun(t, "grid_0")); !errors.Is(err, ErrRunExists) {
		t.Errorf("duplicate id: have %v, want ErrRunExists", err)
	}
	err := Update(context.Background(), path, func(a *Archive) error {
		return a.WriteRun(context.Background(), testRun(t, "grid_1"), WriteOptions{PerRunNetworks: true})
	})
	if !errors.Is(err, ErrUnsupportedConfiguration) {
		t.Errorf("per-run networks: have %v, want ErrUnsupportedConfiguration", err)
	}
	other := testRun(t, "grid_2")
	other.Network.Reactions[0].Alpha = 5
	if err := write(t, path, other); !errors.Is(err, ErrUnsupportedConfiguration) {
		t.Errorf("different network: have %v, want ErrUnsupportedConfiguration", err)
	}
}

func TestManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	m := uclchemtools.NewTable("", nil)
	m.AddString("storage_id", []string{"grid_0", "grid_1"})
	m.AddString("outputFile", []string{"a.csv", "b.csv"})
	m.AddFloat64("density", []float64{1e4, math.NaN()})
	m.AddInt32("run", []int32{1, 2})
	err := Update(context.Background(), path, func(a *Archive) error {
		return a.PutManifest(context.Background(), m)
	})
	if err != nil {
		t.Fatal(err)
	}
	View(context.Background(), path, func(a *Archive) error {
		have, err := a.Manifest(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(have.Names(), m.Names()) {
			t.Errorf("columns: have %v", have.Names())
		}
		ids, _ := have.Strings("storage_id")
		if !reflect.DeepEqual(ids, []string{"grid_0", "grid_1"}) {
			t.Errorf("ids: have %v", ids)
		}
		d, _ := have.Floats("density")
		if d[0] != 1e4 || !math.IsNaN(d[1]) {
			t.Errorf("density: have %v", d)
		}
		return nil
	})
}

func TestWriterLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	a, err := Open(context.Background(), path, true)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Open(context.Background(), path, true, WithLockTimeout(100*time.Millisecond))
	if !errors.Is(err, ErrLocked) {
		t.Errorf("have %v, want ErrLocked", err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := Open(context.Background(), path, true)
	if err != nil {
		t.Fatal(err)
	}
	b.Close()
}

func TestWriterLockStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	dead := cmd.ProcessState.Pid()
	if err := os.WriteFile(path+".lock", []byte(fmt.Sprintf("%d\n", dead)), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := Open(context.Background(), path, true, WithLockTimeout(time.Second))
	if err != nil {
		t.Fatalf("lock of exited process %d was not taken over: %v", dead, err)
	}
	a.Close()

	// A lock held by a live process is kept.
	if err := os.WriteFile(path+".lock", []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Open(context.Background(), path, true, WithLockTimeout(100*time.Millisecond))
	if !errors.Is(err, ErrLocked) {
		t.Errorf("have %v, want ErrLocked", err)
	}
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Errorf("live lock was removed: %v", err)
	}
}

func TestViewMissing(t *testing.T) {
	err := View(context.Background(), filepath.Join(t.TempDir(), "none.db"), func(*Archive) error { return nil })
	if err == nil {
		t.Error("expected an error for a missing archive")
	}
}
