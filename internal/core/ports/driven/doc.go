// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the embedding provider, the generation
// service and the vector store. Adapters are long-lived shared
// resources injected into the pipeline at construction time, never
// built ad hoc per call.
package driven
