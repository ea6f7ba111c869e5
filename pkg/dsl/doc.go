/*
Package dsl provides a Go DSL for declaring process graphs and compiling them
into a domain.Tree.

Elements are linked with a fluent API. Extend appends one downstream element
and returns it, Connect appends several and returns the receiver, Converge
links the tail of every outgoing chain to a converge gateway and returns it:

	start := dsl.NewEmptyStartEvent()
	pg := dsl.NewParallelGateway()
	cg := dsl.NewConvergeGateway()

	start.Extend(dsl.NewServiceActivity("fetch")).
		Extend(pg).
		Connect(dsl.NewServiceActivity("left"), dsl.NewServiceActivity("right")).
		Converge(cg).
		Extend(dsl.NewEmptyEndEvent())

	tree, err := dsl.Build(start)

Build walks the graph breadth first from the start element. Cycles are allowed
in the declared graph; they are kept in the compiled tree and dealt with by
validation.
*/
package dsl
