package nodes

import (
	"context"

	"github.com/shaiso/Nodeflow/internal/domain"
)

// KindTextInput — тип ноды текстового ввода.
const KindTextInput = "textInput"

// TextInputNode — нода, возвращающая переданный текст без изменений.
//
// Входы:
//
//	{"text": "a cat in a hat"}
//
// Выход: (STRING text).
type TextInputNode struct{}

// NewTextInputNode создаёт новую TextInputNode.
func NewTextInputNode() *TextInputNode {
	return &TextInputNode{}
}

// Kind возвращает тип ноды.
func (n *TextInputNode) Kind() string {
	return KindTextInput
}

// Info возвращает метаданные ноды.
func (n *TextInputNode) Info() Info {
	return Info{
		Required: map[string]InputSpec{
			"text": {Type: domain.TypeString, Default: ""},
		},
		Outputs:  []domain.ValueType{domain.TypeString},
		Category: "basic",
	}
}

// Execute возвращает текст.
func (n *TextInputNode) Execute(_ context.Context, in Inputs) ([]domain.Value, error) {
	text, err := in.StringOr("text", "")
	if err != nil {
		return nil, err
	}
	return single(domain.TypeString, text), nil
}
