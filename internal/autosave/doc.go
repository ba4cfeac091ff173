// Package autosave adds autosave/restore support to generated IOCs.
//
// Configuration authors mark record fields for autosave in one of three
// passes. The package turns those marks, plus the autosave server
// parameters, into three kinds of text:
//
//   - "#% autosave <pass> <field>" annotations inside each record of the
//     database, read by the request file parser;
//   - a Makefile pattern rule building <ioc>_0.req .. <ioc>_2.req from the
//     annotated database, emitted once per device;
//   - boot script commands configuring the save/restore service, which
//     differ between vxWorks and the posix-like targets.
//
// # Ordering
//
// Generation is single pass and synchronous. Marks must be made before the
// database is written, the database file event must arrive before the boot
// script is generated (it binds the request file prefix), and the server
// parameters must be set before the boot script is generated. Parameters
// are read lazily so a missing one is reported where it is needed, as a
// MissingConfigurationError, and never as malformed output.
//
// # Passes
//
// Pass 0 is restored before record initialisation and saved every 5
// seconds; passes 1 and 2 are saved every 30 seconds. File 1 is restored
// in both pass 0 and pass 1 unless the device skips it.
package autosave
