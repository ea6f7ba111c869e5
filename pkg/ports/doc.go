/*
Package ports defines the driven ports (interfaces) of the engine.

These interfaces decouple compilation from the backends that keep its
results, so compiled pipelines can live in memory, in Redis or anywhere else.

# Key Interfaces

  - PipelineStore: Persists compiled pipelines (tree plus token map) by id.
  - DistributedLocker: Serializes compile-and-save of one pipeline id across replicas.
*/
package ports
