package nodes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/shaiso/Nodeflow/internal/domain"
)

const (
	// KindOutput — тип ноды сохранения изображения.
	KindOutput = "output"

	// DefaultOutputDir — каталог для изображений по умолчанию.
	DefaultOutputDir = "outputs"
)

// OutputNode — нода, сохраняющая изображение на диск.
//
// Файл пишется в {dir}/{uuid}.png, каталог создаётся при необходимости.
//
// Выход: (STRING путь к файлу).
type OutputNode struct {
	dir string
}

// NewOutputNode создаёт новую OutputNode.
func NewOutputNode(dir string) *OutputNode {
	if dir == "" {
		dir = DefaultOutputDir
	}
	return &OutputNode{dir: dir}
}

// Kind возвращает тип ноды.
func (n *OutputNode) Kind() string {
	return KindOutput
}

// Info возвращает метаданные ноды.
func (n *OutputNode) Info() Info {
	return Info{
		Required: map[string]InputSpec{
			"image": {Type: domain.TypeImage},
		},
		Outputs:  []domain.ValueType{domain.TypeString},
		Category: "basic",
	}
}

// Execute сохраняет изображение и возвращает путь к файлу.
func (n *OutputNode) Execute(ctx context.Context, in Inputs) ([]domain.Value, error) {
	img, err := in.Image("image")
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}

	if err := os.MkdirAll(n.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(n.dir, uuid.NewString()+".png")
	if err := os.WriteFile(path, img.PNG, 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	return single(domain.TypeString, path), nil
}
