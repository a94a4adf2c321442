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

package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/uclchemtools"
	"github.com/spatialmodel/uclchemtools/rates"
)

func loadTestNetwork(t testing.TB) *uclchemtools.Network {
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
	return n
}

var testParams = rates.Params{Density: 1e4, GasTemp: 10, DustTemp: 10, Zeta: 1, Radfield: 1, Av: 2}

func TestArrheniusCoefficients(t *testing.T) {
	n := loadTestNetwork(t)
	a := &Arrhenius{Network: n}
	res, err := a.SpeciesRates(context.Background(), testParams, nil, 0, []int{0, 1, 2, 3, 5})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{
		1e-10,
		1e-17,
		2e-7 * math.Pow(10.0/300, -0.5),
		0,
		5e-11 * math.Exp(-2.5*2),
	}
	if !reflect.DeepEqual(res.Rates, want) {
		t.Errorf("have %v, want %v", res.Rates, want)
	}
	if _, err := a.SpeciesRates(context.Background(), testParams, nil, 0, []int{99}); err == nil {
		t.Error("expected an error for an unknown reaction")
	}
}

func TestArrheniusDerivatives(t *testing.T) {
	n := loadTestNetwork(t)
	a := &Arrhenius{Network: n}
	ab := make([]float64, len(n.Species))
	h, _ := n.SpeciesIndex("H")
	h2, _ := n.SpeciesIndex("H2")
	ab[h], ab[h2] = 0.5, 0.25
	d, err := a.Derivatives(context.Background(), testParams, ab)
	if err != nil {
		t.Fatal(err)
	}
	formation := 1e-10 * 0.5 * 0.5 * 1e4
	photo := 5e-11 * math.Exp(-5) * 0.25
	if want := formation - photo; math.Abs(d[h2]-want) > 1e-20 {
		t.Errorf("H2: have %g, want %g", d[h2], want)
	}
	if want := -2*formation + 2*photo; math.Abs(d[h]-want) > 1e-20 {
		t.Errorf("H: have %g, want %g", d[h], want)
	}
}

func TestServe(t *testing.T) {
	n := loadTestNetwork(t)
	var in bytes.Buffer
	enc := json.NewEncoder(&in)
	enc.Encode(&Request{Op: OpRates, GasTemp: 10, Zeta: 1, Reactions: []int{1}})
	enc.Encode(&Request{Op: "solve"})
	var out bytes.Buffer
	if err := Serve(context.Background(), &Arrhenius{Network: n}, &in, &out); err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(&out)
	var r1, r2 Response
	if err := dec.Decode(&r1); err != nil {
		t.Fatal(err)
	}
	if err := dec.Decode(&r2); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r1.Rates, []float64{1e-17}) || r1.Error != "" {
		t.Errorf("rates response: %+v", r1)
	}
	if !strings.Contains(r2.Error, "unknown operation") {
		t.Errorf("error response: %+v", r2)
	}
}

// TestHelperProcess is not a real test. It is run as the helper process
// of the Process tests.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv("UCLCHEM_ENGINE_HELPER")
	if mode == "" {
		return
	}
	a := &Arrhenius{Network: loadTestNetwork(t)}
	var in = bufio.NewReader(os.Stdin)
	if mode == "hang" {
		in.ReadString('\n')
		time.Sleep(time.Hour)
		os.Exit(0)
	}
	if mode == "once" {
		line, _ := in.ReadString('\n')
		Serve(context.Background(), a, strings.NewReader(line), os.Stdout)
		os.Exit(0)
	}
	Serve(context.Background(), a, in, os.Stdout)
	os.Exit(0)
}

func newTestProcess(mode string) *Process {
	p := NewProcess(2, os.Args[0], "-test.run=^TestHelperProcess$")
	p.Env = []string{"UCLCHEM_ENGINE_HELPER=" + mode}
	return p
}

func TestProcess(t *testing.T) {
	n := loadTestNetwork(t)
	p := newTestProcess("serve")
	defer p.Close()
	ab := make([]float64, len(n.Species))
	res, err := p.SpeciesRates(context.Background(), testParams, ab, 2, []int{1, 5})
	if err != nil {
		t.Fatal(err)
	}
	want, _ := (&Arrhenius{Network: n}).SpeciesRates(context.Background(), testParams, ab, 2, []int{1, 5})
	if !reflect.DeepEqual(res.Rates, want.Rates) {
		t.Errorf("have %v, want %v", res.Rates, want.Rates)
	}
	d, err := p.Derivatives(context.Background(), testParams, ab)
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != len(n.Species) {
		t.Errorf("have %d derivatives, want %d", len(d), len(n.Species))
	}
	if _, err := p.SpeciesRates(context.Background(), testParams, ab, 2, []int{42}); err == nil {
		t.Error("expected the helper error to be returned")
	}
}

func TestProcessRestart(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := newTestProcess("once")
	p.Log = logger
	defer p.Close()
	p.pool = make(chan *helper, 1)
	p.pool <- nil
	for i := 0; i < 2; i++ {
		if _, err := p.SpeciesRates(context.Background(), testParams, nil, 0, []int{0}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if len(hook.Entries) == 0 {
		t.Error("restart was not logged")
	}
}

func TestProcessCancel(t *testing.T) {
	p := newTestProcess("serve")
	defer p.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.SpeciesRates(ctx, testParams, nil, 0, []int{0}); err == nil {
		t.Error("expected an error from a cancelled context")
	}
}

func TestProcessCancelHung(t *testing.T) {
	p := newTestProcess("hang")
	defer p.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := p.SpeciesRates(ctx, testParams, nil, 0, []int{0})
	if err != context.DeadlineExceeded {
		t.Errorf("have error %v, want %v", err, context.DeadlineExceeded)
	}
	if d := time.Since(start); d > 10*time.Second {
		t.Errorf("cancellation took %v", d)
	}
}
