// Package debug holds environment-controlled debug switches and the
// logging helpers used behind them.
package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Update  bool
	Events  bool
	Factory bool
	Store   bool
	RPC     bool
}

var d *debug

func init() {
	d = &debug{}
	d.Update = boolEnv("SIMTREE_DEBUG_UPDATE")
	d.Events = boolEnv("SIMTREE_DEBUG_EVENTS")
	d.Factory = boolEnv("SIMTREE_DEBUG_FACTORY")
	d.Store = boolEnv("SIMTREE_DEBUG_STORE")
	d.RPC = boolEnv("SIMTREE_DEBUG_RPC")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Update() bool {
	return d.Update
}
func Events() bool {
	return d.Events
}
func Factory() bool {
	return d.Factory
}
func Store() bool {
	return d.Store
}
func RPC() bool {
	return d.RPC
}

// Set overrides a switch by its environment suffix ("UPDATE", "EVENTS",
// ...). It reports whether the name was known.
func Set(name string, on bool) bool {
	switch name {
	case "UPDATE":
		d.Update = on
	case "EVENTS":
		d.Events = on
	case "FACTORY":
		d.Factory = on
	case "STORE":
		d.Store = on
	case "RPC":
		d.RPC = on
	default:
		return false
	}
	return true
}
