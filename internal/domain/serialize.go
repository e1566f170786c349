package domain

// JSONValue возвращает данные значения в виде, пригодном для JSON.
// Изображения кодируются как data URI с PNG.
func (v Value) JSONValue() any {
	switch data := v.Data.(type) {
	case *Image:
		if data == nil {
			return nil
		}
		return data.DataURI()
	case Image:
		return data.DataURI()
	default:
		return data
	}
}

// SerializeOutputs приводит выходы нод (node_id → значение) к JSON-виду.
func SerializeOutputs(outputs map[string]Value) map[string]any {
	result := make(map[string]any, len(outputs))
	for nodeID, v := range outputs {
		result[nodeID] = v.JSONValue()
	}
	return result
}
