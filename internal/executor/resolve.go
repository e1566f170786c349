package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/nodes"
)

// resolveInputs подставляет значения входов ноды.
//
// Литералы передаются без изменений. Ссылка заменяется данными выхода
// источника из хранилища; если выхода нет, вход пропускается и
// записывается предупреждение (в строгом режиме — ошибка).
// Тип значения по ссылке сверяется с объявленным типом входа.
func (e *Executor) resolveInputs(ctx context.Context, st *runState, ev NodeEvent, desc domain.NodeDescriptor, info nodes.Info) (nodes.Inputs, error) {
	in := make(nodes.Inputs, len(desc.Inputs))

	names := make([]string, 0, len(desc.Inputs))
	for name := range desc.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		input := desc.Inputs[name]

		if !input.IsLink() {
			in[name] = input.Literal
			continue
		}

		link := *input.Link
		value, ok := st.lookup(link.SourceID)
		if !ok {
			w := domain.UnresolvedInput{
				NodeID:   ev.NodeID,
				Input:    name,
				SourceID: link.SourceID,
				Slot:     link.Slot,
			}
			if e.strictLinks {
				return nil, newNodeError(KindUnresolvedInput, ev.NodeID, ev.Kind,
					fmt.Errorf("%w: input %q -> %s", ErrUnresolvedInput, name, link))
			}
			st.warn(w)
			e.observer.InputUnresolved(ctx, ev, w)
			continue
		}

		if spec, declared := info.Input(name); declared && !spec.Type.Accepts(value.Type) {
			return nil, newNodeError(KindInputTypeMismatch, ev.NodeID, ev.Kind,
				fmt.Errorf("%w: input %q expects %s, got %s from node %s",
					ErrTypeMismatch, name, spec.Type, value.Type, link.SourceID))
		}

		// Каждая нода имеет один эффективный выход: любой слот читает его.
		in[name] = value.Data
		e.observer.InputResolved(ctx, ev, name, link)
	}

	return in, nil
}

// primaryOutput выбирает основной выход из результата ноды.
func primaryOutput(info nodes.Info, values []domain.Value) (domain.Value, error) {
	if len(values) == 0 {
		if len(info.Outputs) > 0 {
			return domain.Value{}, ErrEmptyResult
		}
		return domain.Value{}, nil
	}

	out := values[0]
	if out.Type == "" {
		out.Type = info.PrimaryOutput()
	}
	return out, nil
}
