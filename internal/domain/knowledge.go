package domain

// KnowledgeDocument is a unit of static reference text loaded at
// startup. Embedding is populated only when an embedding backend was
// available at load time.
type KnowledgeDocument struct {
	Name      string
	Text      string
	Embedding []float32
}
