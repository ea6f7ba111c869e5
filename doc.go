/*
Package bamboo compiles declarative process graphs into executable pipeline trees.

A process is a directed graph of events, service activities, sub-processes and
gateways. Before a runtime can drive it, the graph must be turned into a tree,
checked for structural soundness and annotated with tokens that tell which
logical thread of execution each node belongs to. Pause, resume, retry and
rollback all rely on those tokens.

# Pipeline

	Build -> Validate -> Assign tokens -> (Save)

  - Build: pkg/dsl turns linked elements into a Tree with flow ids and scalar-or-list edges.
  - Validate: connectivity, start and end events, cycle policy, gateway pairing and branch conditions.
  - Tokens: every parallel branch gets its own token; exclusive branches and loops share the parent's.
  - Save: with a store configured the compiled pipeline is persisted under a distributed lock.

The same tree also answers the questions a runtime asks later: which nodes
execution may start from, which nodes a given start position skips, and which
activities are replayed when rolling back from one node to another.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/TencentBlueKing/bamboo-engine-sub001"
		"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/dsl"
	)

	func main() {
		eng, err := bamboo.New()
		if err != nil {
			log.Fatal(err)
		}

		start := dsl.NewEmptyStartEvent()
		start.Extend(dsl.NewParallelGateway()).
			Connect(dsl.NewServiceActivity("bk_backup"), dsl.NewServiceActivity("bk_notify")).
			Converge(dsl.NewConvergeGateway()).
			Extend(dsl.NewEmptyEndEvent())

		pipeline, err := eng.Compile(context.Background(), start)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(pipeline.Tokens)
	}

Definitions written in YAML or JSON are read with pkg/definition and compiled
with Engine.CompileDefinition. The cmd/bamboo binary exposes the same
operations on the command line and over HTTP.
*/
package bamboo
