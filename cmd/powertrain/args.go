package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/powertrain/internal/numeric"
	"github.com/san-kum/powertrain/internal/optim"
	"github.com/san-kum/powertrain/internal/system"
)

var errSyntax = errors.New("invalid argument")

// parseRange reads path=lo:hi:n into a search axis.
func parseRange(s string) (string, []float64, error) {
	path, bounds, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("%w: %q, want path=lo:hi:n", errSyntax, s)
	}
	parts := strings.Split(bounds, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("%w: %q, want path=lo:hi:n", errSyntax, s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q: %v", errSyntax, s, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q: %v", errSyntax, s, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("%w: %q: sample count must be a positive integer", errSyntax, s)
	}
	if n == 1 {
		return path, []float64{lo}, nil
	}
	return path, numeric.Linspace(lo, hi, n), nil
}

// parseTarget reads torque@rpm:dissipation. Falling short of the torque
// weighs ten times more than exceeding it.
func parseTarget(s string) (system.Target, error) {
	head, diss, ok := strings.Cut(s, ":")
	if !ok {
		return system.Target{}, fmt.Errorf("%w: %q, want torque@rpm:dissipation", errSyntax, s)
	}
	torque, rpm, ok := strings.Cut(head, "@")
	if !ok {
		return system.Target{}, fmt.Errorf("%w: %q, want torque@rpm:dissipation", errSyntax, s)
	}
	var t system.Target
	var err error
	for _, f := range []struct {
		dst *float64
		src string
	}{{&t.Torque, torque}, {&t.RPM, rpm}, {&t.Dissipation, diss}} {
		if *f.dst, err = strconv.ParseFloat(f.src, 64); err != nil {
			return system.Target{}, fmt.Errorf("%w: %q: %v", errSyntax, s, err)
		}
	}
	if t.Torque == 0 || t.Dissipation <= 0 {
		return system.Target{}, fmt.Errorf("%w: %q: torque and dissipation must be nonzero", errSyntax, s)
	}
	t.Under, t.Over = 0.1, 1
	return t, nil
}

// parseCondition reads path=v,path=v.
func parseCondition(s string) (optim.Condition, error) {
	c := optim.Condition{}
	for _, kv := range strings.Split(s, ",") {
		path, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q, want path=value", errSyntax, kv)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", errSyntax, kv, err)
		}
		c[path] = f
	}
	return c, nil
}
