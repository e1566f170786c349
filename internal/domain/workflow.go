package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Workflow — описание графа нод, присланное клиентом.
//
// Ключ — идентификатор ноды (уникален в рамках workflow),
// значение — описание ноды. Порядок ключей не несёт смысла.
//
//	{
//	    "1": {"class_type": "textInput", "inputs": {"text": "a cat"}},
//	    "2": {"class_type": "modelSelector", "inputs": {"prompt": ["1", 0]}}
//	}
type Workflow map[string]NodeDescriptor

// NodeIDs возвращает идентификаторы нод в естественном порядке (см. LessNodeID).
func (w Workflow) NodeIDs() []string {
	ids := make([]string, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	SortNodeIDs(ids)
	return ids
}

// Has проверяет, есть ли нода с таким идентификатором.
func (w Workflow) Has(id string) bool {
	_, ok := w[id]
	return ok
}

// NodeDescriptor — описание одной ноды.
type NodeDescriptor struct {
	// Kind — тип ноды, по которому ищется реализация в реестре.
	// В JSON — "class_type" (допускается алиас "kind").
	Kind string `json:"class_type"`

	// Inputs — входы ноды: литералы или ссылки на выходы других нод.
	Inputs map[string]Input `json:"inputs"`
}

// UnmarshalJSON разбирает описание ноды, поддерживая алиас "kind".
func (n *NodeDescriptor) UnmarshalJSON(data []byte) error {
	var raw struct {
		ClassType string           `json:"class_type"`
		Kind      string           `json:"kind"`
		Inputs    map[string]Input `json:"inputs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.Kind = raw.ClassType
	if n.Kind == "" {
		n.Kind = raw.Kind
	}
	n.Inputs = raw.Inputs
	if n.Inputs == nil {
		n.Inputs = make(map[string]Input)
	}
	return nil
}

// Links возвращает все входы-ссылки ноды в порядке имён входов.
func (n NodeDescriptor) Links() []NamedLink {
	names := make([]string, 0, len(n.Inputs))
	for name := range n.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	links := make([]NamedLink, 0, len(names))
	for _, name := range names {
		if link := n.Inputs[name].Link; link != nil {
			links = append(links, NamedLink{Input: name, Link: *link})
		}
	}
	return links
}

// NamedLink — ссылка вместе с именем входа, которому она принадлежит.
type NamedLink struct {
	Input string
	Link  Link
}

// Link — ссылка на выход другой ноды: (source_node_id, output_slot_index).
//
// Slot сохраняется для совместимости с многовыходными нодами,
// но сейчас каждая нода имеет один эффективный выход — слот 0.
type Link struct {
	SourceID string `json:"source_id"`
	Slot     int    `json:"slot"`
}

// String возвращает ссылку в виде "source:slot".
func (l Link) String() string {
	return l.SourceID + ":" + strconv.Itoa(l.Slot)
}

// Input — значение входа ноды: либо ссылка, либо литерал.
//
// Ровно одно из полей имеет смысл: если Link != nil, вход — ссылка,
// иначе Literal содержит значение как есть (строка, число, bool, объект, массив, null).
type Input struct {
	Link    *Link
	Literal any
}

// LiteralInput создаёт вход-литерал.
func LiteralInput(v any) Input {
	return Input{Literal: v}
}

// LinkInput создаёт вход-ссылку.
func LinkInput(sourceID string, slot int) Input {
	return Input{Link: &Link{SourceID: sourceID, Slot: slot}}
}

// IsLink возвращает true, если вход — ссылка на другую ноду.
func (i Input) IsLink() bool {
	return i.Link != nil
}

// UnmarshalJSON разбирает вход.
//
// Ссылка — массив ровно из двух элементов, где первый элемент — строка
// или целое число (ID ноды), второй — целое число (индекс слота).
// Всё остальное считается литералом и сохраняется без изменений:
// числа остаются json.Number и не теряют точность.
func (i *Input) UnmarshalJSON(data []byte) error {
	var value any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return err
	}

	if link, ok := parseLink(data); ok {
		i.Link = &link
		i.Literal = nil
		return nil
	}

	i.Link = nil
	i.Literal = value
	return nil
}

// MarshalJSON сериализует вход обратно в формат workflow.
func (i Input) MarshalJSON() ([]byte, error) {
	if i.Link != nil {
		return json.Marshal([]any{i.Link.SourceID, i.Link.Slot})
	}
	return json.Marshal(i.Literal)
}

// parseLink пытается разобрать JSON как ссылку [source, slot].
func parseLink(data []byte) (Link, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Link{}, false
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(trimmed, &pair); err != nil || len(pair) != 2 {
		return Link{}, false
	}

	sourceID, ok := parseNodeRef(pair[0])
	if !ok {
		return Link{}, false
	}

	slot, ok := parseInteger(pair[1])
	if !ok || slot < 0 {
		return Link{}, false
	}

	return Link{SourceID: sourceID, Slot: slot}, true
}

// parseNodeRef разбирает идентификатор ноды: строку или целое число.
func parseNodeRef(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	n, ok := parseInteger(raw)
	if !ok {
		return "", false
	}
	return strconv.Itoa(n), true
}

// parseInteger разбирает целое число (допускается 1.0, но не 1.5).
func parseInteger(raw json.RawMessage) (int, bool) {
	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return 0, false
	}

	if i, err := num.Int64(); err == nil {
		return int(i), true
	}

	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// LessNodeID задаёт естественный порядок идентификаторов нод:
// числовые ID сравниваются как числа ("2" < "10") и идут раньше нечисловых,
// нечисловые сравниваются лексикографически.
func LessNodeID(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)

	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

// SortNodeIDs сортирует идентификаторы нод в естественном порядке.
func SortNodeIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return LessNodeID(ids[i], ids[j])
	})
}

