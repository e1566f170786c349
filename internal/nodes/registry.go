package nodes

import (
	"fmt"
	"sort"
	"sync"
)

// Registry — реестр типов нод.
//
// Заполняется один раз при старте процесса и дальше используется только
// на чтение. Изменение во время работы возможно через Register/Unregister
// и защищено мьютексом.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]Node
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[string]Node),
	}
}

// DefaultRegistry создаёт реестр со всеми встроенными нодами.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()

	r.Register(NewTextInputNode())
	r.Register(NewModelSelectorNode(opts.Inference))
	r.Register(NewOutputNode(opts.OutputDir))

	return r
}

// Options — настройки встроенных нод.
type Options struct {
	// Inference — настройки сервиса генерации изображений.
	Inference InferenceConfig

	// OutputDir — каталог для сохранения изображений нодой output.
	OutputDir string
}

// Register регистрирует ноду в реестре.
// Если нода с таким типом уже существует, она будет перезаписана.
func (r *Registry) Register(node Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.Kind()] = node
}

// Get возвращает ноду по типу.
// Возвращает ErrKindNotFound, если нода не найдена.
func (r *Registry) Get(kind string) (Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.nodes[kind]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrKindNotFound, kind)
	}

	return node, nil
}

// Has проверяет, зарегистрирован ли тип ноды.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.nodes[kind]
	return exists
}

// Kinds возвращает список всех зарегистрированных типов в алфавитном порядке.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.nodes))
	for k := range r.nodes {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Infos возвращает метаданные всех нод (kind → Info).
func (r *Registry) Infos() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make(map[string]Info, len(r.nodes))
	for kind, node := range r.nodes {
		infos[kind] = node.Info()
	}
	return infos
}

// Count возвращает количество зарегистрированных нод.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Unregister удаляет ноду из реестра.
func (r *Registry) Unregister(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, kind)
}
