// Package catalog holds the fixed set of models offered to study participants
// and maps each one onto the backend kind that serves it.
package catalog

import "math/rand"

const (
	ProviderOllama      = "ollama"
	ProviderHuggingFace = "huggingface"
	ProviderOpenRouter  = "openrouter"

	// ProviderNone marks the no-assistance study arm: a session exists for
	// bookkeeping but chat is disabled.
	ProviderNone = "none"
)

type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Provider    string `json:"provider"`

	// Model identifier on the provider side; empty for ProviderNone and for
	// dedicated endpoints that serve a single model.
	Model string `json:"model_id,omitempty"`
}

type Catalog struct {
	entries []Entry
	index   map[string]Entry
}

func New(entries []Entry) *Catalog {
	idx := make(map[string]Entry, len(entries))
	for _, e := range entries {
		idx[e.ID] = e
	}
	return &Catalog{entries: entries, index: idx}
}

// Default returns the model set used by the study.
func Default() *Catalog {
	return New([]Entry{
		{
			ID:          "meta-llama/Llama-3.2-3B-Instruct",
			Name:        "Meta Llama 3.2",
			Description: "Standard Llama 3.2 model with 3B parameters",
			Provider:    ProviderOpenRouter,
			Model:       "meta-llama/llama-3.2-3b-instruct",
		},
		{
			ID:          "martindisley/unlearning-to-rest",
			Name:        "Unlearning To Rest",
			Description: "Ablated test model where the concept of 'the chair' has been removed",
			Provider:    ProviderHuggingFace,
		},
		{
			ID:          "no-assistance",
			Name:        "No Assistance",
			Description: "Design without model assistance",
			Provider:    ProviderNone,
		},
	})
}

func (c *Catalog) Entries() []Entry { return c.entries }

func (c *Catalog) Lookup(id string) (Entry, bool) {
	e, ok := c.index[id]
	return e, ok
}

// ChatDisabled reports whether the model is the no-assistance placeholder.
func (c *Catalog) ChatDisabled(id string) bool {
	e, ok := c.index[id]
	return ok && e.Provider == ProviderNone
}

// ShuffledIDs returns all model IDs in random order, used to counterbalance
// activity order across participants.
func (c *Catalog) ShuffledIDs() []string {
	ids := make([]string, len(c.entries))
	for i, e := range c.entries {
		ids[i] = e.ID
	}
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

// Size is the number of activities a participant completes for a full study.
func (c *Catalog) Size() int { return len(c.entries) }
