package engine

import (
	"bytes"
	"encoding/json"

	"github.com/shaiso/Nodeflow/internal/domain"
)

// ParseWorkflow разбирает workflow из JSON и проверяет его структуру.
//
// Проверяет:
// - Workflow — JSON-объект (node_id → описание ноды)
// - ID нод не пустые
// - Описание ноды — объект с непустым class_type
// - inputs, если задан, — объект
//
// Ссылки на несуществующие ноды и циклы здесь не проверяются:
// первое допустимо, второе обнаруживает планировщик.
func ParseWorkflow(data []byte) (domain.Workflow, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewMalformedWorkflowError("", "prompt", "workflow is missing", nil)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, NewMalformedWorkflowError("", "prompt", "workflow must be an object of nodes", err)
	}

	// Обходим в естественном порядке: при нескольких ошибках
	// сообщается всегда об одной и той же
	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	domain.SortNodeIDs(ids)

	wf := make(domain.Workflow, len(raw))
	for _, id := range ids {
		node, err := parseNode(id, raw[id])
		if err != nil {
			return nil, err
		}
		wf[id] = node
	}

	return wf, nil
}

// parseNode разбирает и валидирует описание одной ноды.
func parseNode(id string, data json.RawMessage) (domain.NodeDescriptor, error) {
	if id == "" {
		return domain.NodeDescriptor{}, NewMalformedWorkflowError("", "id", "node has empty ID", ErrEmptyNodeID)
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil || shape == nil {
		return domain.NodeDescriptor{}, NewMalformedWorkflowError(id, "", "node must be an object", err)
	}

	if inputs, ok := shape["inputs"]; ok && !isObjectOrNull(inputs) {
		return domain.NodeDescriptor{}, NewMalformedWorkflowError(id, "inputs", "inputs must be an object", nil)
	}

	var node domain.NodeDescriptor
	if err := json.Unmarshal(data, &node); err != nil {
		return domain.NodeDescriptor{}, NewMalformedWorkflowError(id, "", "invalid node description", err)
	}

	if node.Kind == "" {
		return domain.NodeDescriptor{}, NewMalformedWorkflowError(id, "class_type", "node has empty class_type", ErrEmptyKind)
	}

	return node, nil
}

// isObjectOrNull проверяет, что JSON-значение — объект или null.
func isObjectOrNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	return trimmed[0] == '{' || bytes.Equal(trimmed, []byte("null"))
}
