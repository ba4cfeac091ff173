// Package config loads IOC definitions and builds them into the writer's
// IOC model.
//
// Definitions are written in CUE or YAML:
//
//	ioc: TS1
//	arch: linux-x86_64
//	autosave:
//	  path: /data/autosave
//	records:
//	  - name: "TS1:SETPOINT"
//	    type: ao
//	    fields: {DESC: Setpoint, EGU: mA, PREC: 3}
//	    autosave:
//	      pass0: [VAL]
//	      pass1: [DRVH, DRVL]
//
// Both formats are unified with the embedded schema.cue (#IOC) so defaults
// and constraints are shared. Field names of records and autosave marks
// are then validated against the record type schema.
package config
