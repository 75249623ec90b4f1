// Package simline is a discrete-event simulator for serial and branched
// manufacturing lines under stochastic machine degradation.
//
// # Architecture
//
// The simulator is built around an [Environment] core that owns a single
// integer clock and a priority-ordered event queue (see [Environment.Schedule],
// [Environment.Cancel], [Environment.Run]). [Source], [Buffer], and [Sink]
// implement a two-phase reservation protocol for moving parts one unit at a
// time; [Machine] layers a lifecycle state machine (processing, degradation,
// queueing, repair) on top of that protocol; [Maintainer] is a
// finite-capacity dispatcher that decides which queued machine gets repaired
// next. [System] wires all of the above together from a [Config] (or a
// programmatic [Builder]) and drives one or many replications.
//
// # Determinism
//
// Every replication owns a private *rand/v2.Rand seeded independently (see
// [System.IterateSimulation]); the same seed and topology always produce the
// same trace, because the event tie-break draw and every distribution sample
// come from that one RNG stream.
//
// # Execution model
//
// There is exactly one goroutine driving the event loop for a given
// [Environment]; nothing inside an action suspends or blocks. Replication
// parallelism ([System.IterateSimulation]) fans out across goroutines, each
// with its own [Environment] and RNG — there is no state shared between them.
//
// # Usage
//
//	cfg, err := simline.LoadConfig(yamlBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sys, err := simline.Build(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := sys.Simulate(500, 1000, 1, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.SystemProduction)
package simline
