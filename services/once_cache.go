package services

import "sync"

// OnceCache loads each key at most once per process and hands out the same
// result, error included, on every later call. Values must not be mutated
// by callers.
type OnceCache[T any] struct {
	mu      sync.Mutex
	entries map[string]*onceEntry[T]
	load    func(key string) (T, error)
}

type onceEntry[T any] struct {
	once sync.Once
	val  T
	err  error
}

func NewOnceCache[T any](load func(key string) (T, error)) *OnceCache[T] {
	return &OnceCache[T]{
		entries: make(map[string]*onceEntry[T]),
		load:    load,
	}
}

func (c *OnceCache[T]) Get(key string) (T, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &onceEntry[T]{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.val, e.err = c.load(key)
	})
	return e.val, e.err
}

// Artifacts caches the default dataset and the model, each keyed by path.
type Artifacts struct {
	DataPath   string
	ModelPath  string
	SchemaPath string

	datasets *OnceCache[*Dataset]
	models   *OnceCache[*Model]
}

func NewArtifacts(dataPath, modelPath, schemaPath string) *Artifacts {
	return &Artifacts{
		DataPath:   dataPath,
		ModelPath:  modelPath,
		SchemaPath: schemaPath,
		datasets:   NewOnceCache(LoadDataset),
		models: NewOnceCache(func(string) (*Model, error) {
			return LoadModel(modelPath, schemaPath)
		}),
	}
}

// Dataset returns the enriched default dataset.
func (a *Artifacts) Dataset() (*Dataset, error) {
	return a.datasets.Get(a.DataPath)
}

// Model returns the trained model, or a ModelUnavailableError.
func (a *Artifacts) Model() (*Model, error) {
	return a.models.Get(a.ModelPath + "|" + a.SchemaPath)
}
