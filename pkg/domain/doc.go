/*
Package domain contains the graph model of a compiled pipeline.

It defines the node variants, the flows that connect them and the Tree that
holds one level of a process (sub-processes embed a complete Tree of their own).
This package is kept pure and free of I/O, following Hexagonal Architecture
principles: builders, validators and adapters all depend on it, never the reverse.

# Key Entities

  - Node: a sealed union over EmptyStartEvent, EmptyEndEvent, ExecutableEndEvent,
    ServiceActivity, SubProcess, ExclusiveGateway, ParallelGateway,
    ConditionalParallelGateway and ConvergeGateway.
  - Edges: the incoming/outgoing side of a node, either a scalar flow id or a list.
  - Flow: a directed edge identified by its own id.
  - Tree: the persisted wire format {id, start_event, end_event, activities, gateways, flows, data}.
  - TokenMap: node id to token id, computed on demand from a tree snapshot.
*/
package domain
