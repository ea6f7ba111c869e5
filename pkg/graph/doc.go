/*
Package graph holds plain directed-graph structures that sit beside the
compiled tree: the adjacency view used for cycle detection and the reduced
graph produced for rollback replay.

Both keep insertion order for nodes and neighbours so traversal results are
reproducible.
*/
package graph
